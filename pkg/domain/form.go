package domain

// AsyncState is what the form shows for one async property.
type AsyncState struct {
	// Status is one of idle, loading, background_loading, ready, warning, error.
	Status         string           `json:"status"`
	Options        []PropertyOption `json:"options,omitempty"`
	Collection     []Property       `json:"collection,omitempty"`
	CredentialName string           `json:"credentialName,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// FormState is the visible configuration form of one node.
type FormState struct {
	NodeID      string                 `json:"nodeId"`
	Version     int                    `json:"version"`
	Properties  []Property             `json:"properties"`
	Credentials []CredentialDescriptor `json:"credentials,omitempty"`
	Inputs      map[string]any         `json:"inputs"`
	// Async is keyed by the dot-path of each async property.
	Async map[string]AsyncState `json:"async,omitempty"`
	// Issues lists visible inputs whose value does not fit their property.
	Issues []string `json:"issues,omitempty"`
}

// HistoryStatus summarizes the undo/redo state of a workflow.
type HistoryStatus struct {
	CanUndo    bool `json:"canUndo"`
	CanRedo    bool `json:"canRedo"`
	UndoDepth  int  `json:"undoDepth"`
	RedoDepth  int  `json:"redoDepth"`
	IsApplying bool `json:"isApplying"`
}
