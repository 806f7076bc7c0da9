package domain

// PropertyType is the closed set of field kinds a node can declare.
type PropertyType string

const (
	PropertyString                  PropertyType = "string"
	PropertyNumber                  PropertyType = "number"
	PropertyBoolean                 PropertyType = "boolean"
	PropertyOptions                 PropertyType = "options"
	PropertyMultiOptions            PropertyType = "multiOptions"
	PropertyPassword                PropertyType = "password"
	PropertyJSONSchema              PropertyType = "jsonSchema"
	PropertyJSON                    PropertyType = "json"
	PropertyCode                    PropertyType = "code"
	PropertyArray                   PropertyType = "array"
	PropertyCollection              PropertyType = "propertyCollection"
	PropertySection                 PropertyType = "section"
	PropertyCredential              PropertyType = "credential"
	PropertyAsyncOptions            PropertyType = "asyncOptions"
	PropertyAsyncPropertyCollection PropertyType = "asyncPropertyCollection"
)

// VersionKey is the pseudo dependency path that matches the node's selected version.
const VersionKey = "@version"

// Property describes one configuration field of a node.
type Property struct {
	Name        string       `json:"name" yaml:"name" mapstructure:"name"`
	DisplayName string       `json:"displayName,omitempty" yaml:"displayName,omitempty" mapstructure:"displayName"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Type        PropertyType `json:"type" yaml:"type" mapstructure:"type"`
	Default     any          `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
	Optional    bool         `json:"optional,omitempty" yaml:"optional,omitempty" mapstructure:"optional"`
	Hidden      bool         `json:"hidden,omitempty" yaml:"hidden,omitempty" mapstructure:"hidden"`

	DisplayOptions *DisplayOptions `json:"displayOptions,omitempty" yaml:"displayOptions,omitempty" mapstructure:"displayOptions"`

	// Dependencies overrides the input paths an async property is refetched on.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" mapstructure:"dependencies"`

	// Collection holds child properties for collection, array and section types.
	Collection []Property `json:"collection,omitempty" yaml:"collection,omitempty" mapstructure:"collection"`

	// LoadMethod names the external data source of an async property.
	LoadMethod string           `json:"loadMethod,omitempty" yaml:"loadMethod,omitempty" mapstructure:"loadMethod"`
	Options    []PropertyOption `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
}

// PropertyOption is one selectable value of an options field.
type PropertyOption struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Value       any    `json:"value" yaml:"value" mapstructure:"value"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// DisplayOptions maps dependency paths to the conditions that show or hide a field.
// Within one path the conditions are OR'd.
type DisplayOptions struct {
	Show map[string][]Condition `json:"show,omitempty" yaml:"show,omitempty" mapstructure:"show"`
	Hide map[string][]Condition `json:"hide,omitempty" yaml:"hide,omitempty" mapstructure:"hide"`
}

// CredentialDescriptor declares a credential type a node version accepts.
type CredentialDescriptor struct {
	Name           string          `json:"name" yaml:"name" mapstructure:"name"`
	Required       bool            `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
	DisplayOptions *DisplayOptions `json:"displayOptions,omitempty" yaml:"displayOptions,omitempty" mapstructure:"displayOptions"`
}

// IsContainer reports whether the property holds child properties.
func (p *Property) IsContainer() bool {
	switch p.Type {
	case PropertyCollection, PropertyArray, PropertySection, PropertyAsyncPropertyCollection:
		return true
	}
	return false
}

// IsAsync reports whether the property's data comes from an external loader.
func (p *Property) IsAsync() bool {
	return p.LoadMethod != ""
}

// Label returns DisplayName, falling back to Name.
func (p *Property) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}
