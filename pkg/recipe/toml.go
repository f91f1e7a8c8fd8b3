package recipe

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/medamarfilali/cubo/pkg/errdefs"
)

// TOMLFile is the declarative table form of a recipe. Run steps are
// applied before copy steps before config fields; the table syntax has
// no interleaving.
type TOMLFile struct {
	Image  ImageSpec  `toml:"image"`
	Run    []RunStep  `toml:"run"`
	Copy   []CopyStep `toml:"copy"`
	Config TOMLConfig `toml:"config"`
}

// ImageSpec names the base image.
type ImageSpec struct {
	Base string `toml:"base"`
}

// RunStep is one shell command executed during the build.
type RunStep struct {
	Command string `toml:"command"`
}

// CopyStep copies a build-context path into the image.
type CopyStep struct {
	Src  string `toml:"src"`
	Dest string `toml:"dest"`
}

// TOMLConfig carries the image configuration fields of the table form.
type TOMLConfig struct {
	Env     map[string]string `toml:"env"`
	Workdir string            `toml:"workdir"`
	Cmd     []string          `toml:"cmd"`
	Expose  []string          `toml:"expose"`
}

// ParseTOMLFile reads and parses a Cubofile.toml from disk.
func ParseTOMLFile(path string) (*TOMLFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.System("Failed to read Cubofile.toml: %v", err)
	}
	return ParseTOML(string(content))
}

// ParseTOML parses the table recipe syntax. The base image is required.
func ParseTOML(content string) (*TOMLFile, error) {
	var file TOMLFile
	if err := toml.Unmarshal([]byte(content), &file); err != nil {
		return nil, errdefs.System("Failed to parse Cubofile.toml: %v", err)
	}
	if file.Image.Base == "" {
		return nil, errdefs.InvalidConfiguration("Cubofile.toml requires image.base")
	}
	return &file, nil
}

// BaseImage returns the base image reference.
func (f *TOMLFile) BaseImage() string {
	return f.Image.Base
}

// RunCommands returns all run commands in order.
func (f *TOMLFile) RunCommands() []string {
	var commands []string
	for _, step := range f.Run {
		commands = append(commands, step.Command)
	}
	return commands
}

// CopySteps returns all copy steps in order.
func (f *TOMLFile) CopySteps() []CopyStep {
	return f.Copy
}
