package domain

// LoadResult is the data an async loader returns for a dynamic property.
// Any combination of fields may be set.
type LoadResult struct {
	Options        []PropertyOption `json:"options,omitempty"`
	Collection     []Property       `json:"collection,omitempty"`
	CredentialName string           `json:"credentialName,omitempty"`
}
