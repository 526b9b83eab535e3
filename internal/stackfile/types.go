// File: internal/stackfile/types.go
// Brief: devstack.yaml schema.

package stackfile

const (
	DefaultFileName = "devstack.yaml"
	APIVersion      = "devstack.dev/v1"
	Kind            = "Stack"
)

// File is a parsed devstack.yaml.
type File struct {
	APIVersion  string      `yaml:"apiVersion,omitempty" json:"apiVersion,omitempty"`
	Kind        string      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Name        string      `yaml:"name,omitempty" json:"name,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Props       []PropSpec  `yaml:"props,omitempty" json:"props,omitempty"`
	Modes       []ModeSpec  `yaml:"modes,omitempty" json:"modes,omitempty"`
	Layers      []LayerSpec `yaml:"layers,omitempty" json:"layers,omitempty"`

	// Path is the absolute path the file was read from.
	Path string `yaml:"-" json:"-"`
}

type PropSpec struct {
	Name   string         `yaml:"name" json:"name"`
	Values map[string]any `yaml:"values" json:"values"`
}

type ModeSpec struct {
	Name        string `yaml:"name" json:"name"`
	Default     bool   `yaml:"default,omitempty" json:"default,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// LayerSpec declares a layer whose deploy and destroy steps are commands.
// Commands are text/templates rendered with .Stack, .Layer, .Shared and .Modes.
type LayerSpec struct {
	Name            string            `yaml:"name" json:"name"`
	Needs           []string          `yaml:"needs,omitempty" json:"needs,omitempty"`
	Shared          map[string]any    `yaml:"shared,omitempty" json:"shared,omitempty"`
	Deploy          string            `yaml:"deploy,omitempty" json:"deploy,omitempty"`
	Destroy         string            `yaml:"destroy,omitempty" json:"destroy,omitempty"`
	ContinueOnError bool              `yaml:"continueOnError,omitempty" json:"continueOnError,omitempty"`
	Dir             string            `yaml:"dir,omitempty" json:"dir,omitempty"`
	Env             map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	// Shell runs commands through /bin/sh -c. Defaults to true.
	Shell *bool `yaml:"shell,omitempty" json:"shell,omitempty"`
}

func (l LayerSpec) UseShell() bool {
	return l.Shell == nil || *l.Shell
}
