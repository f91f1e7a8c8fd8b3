package recipe

import (
	"os"
	"strings"

	"github.com/medamarfilali/cubo/pkg/errdefs"
)

// InstructionKind tags the variant of an Instruction.
type InstructionKind string

const (
	KindBase    InstructionKind = "base"
	KindRun     InstructionKind = "run"
	KindCopy    InstructionKind = "copy"
	KindEnv     InstructionKind = "env"
	KindWorkdir InstructionKind = "workdir"
	KindCmd     InstructionKind = "cmd"
	KindComment InstructionKind = "comment"
)

// Instruction is one build step. Only the fields of the tagged variant
// are populated.
type Instruction struct {
	Kind InstructionKind
	// Base
	Image string
	// Run
	Command string
	// Copy
	Src  string
	Dest string
	// Env
	Key   string
	Value string
	// Workdir
	Path string
	// Cmd
	Argv []string
}

// Cubofile is the parsed form of the line-oriented recipe syntax.
// Instruction order is preserved and is the execution order.
type Cubofile struct {
	Instructions []Instruction
}

// ParseFile reads and parses a Cubofile from disk.
func ParseFile(path string) (*Cubofile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.System("Failed to read Cubofile: %v", err)
	}
	return Parse(string(content))
}

// Parse parses the text recipe syntax. Directives are case-insensitive;
// blank lines and lines starting with # become comments; errors carry
// 1-based line numbers.
func Parse(content string) (*Cubofile, error) {
	var instructions []Instruction

	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			instructions = append(instructions, Instruction{Kind: KindComment})
			continue
		}

		instruction, err := parseLine(trimmed, lineNum)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, instruction)
	}

	return &Cubofile{Instructions: instructions}, nil
}

func parseLine(line string, lineNum int) (Instruction, error) {
	directive, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch strings.ToUpper(directive) {
	case "BASE":
		if args == "" {
			return Instruction{}, errdefs.InvalidConfiguration("Line %d: BASE requires an image argument", lineNum)
		}
		return Instruction{Kind: KindBase, Image: args}, nil

	case "RUN":
		if args == "" {
			return Instruction{}, errdefs.InvalidConfiguration("Line %d: RUN requires a command", lineNum)
		}
		return Instruction{Kind: KindRun, Command: args}, nil

	case "COPY":
		parts := strings.Fields(args)
		if len(parts) != 2 {
			return Instruction{}, errdefs.InvalidConfiguration("Line %d: COPY requires exactly 2 arguments: <src> <dest>", lineNum)
		}
		return Instruction{Kind: KindCopy, Src: parts[0], Dest: parts[1]}, nil

	case "ENV":
		key, value, found := strings.Cut(args, "=")
		if !found {
			return Instruction{}, errdefs.InvalidConfiguration("Line %d: ENV must be in format KEY=value", lineNum)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return Instruction{}, errdefs.InvalidConfiguration("Line %d: ENV key cannot be empty", lineNum)
		}
		return Instruction{Kind: KindEnv, Key: key, Value: strings.TrimSpace(value)}, nil

	case "WORKDIR":
		if args == "" {
			return Instruction{}, errdefs.InvalidConfiguration("Line %d: WORKDIR requires a path", lineNum)
		}
		return Instruction{Kind: KindWorkdir, Path: args}, nil

	case "CMD":
		if args == "" {
			return Instruction{}, errdefs.InvalidConfiguration("Line %d: CMD requires a command", lineNum)
		}
		// Naive whitespace split; quoting is not interpreted.
		return Instruction{Kind: KindCmd, Argv: strings.Fields(args)}, nil

	default:
		return Instruction{}, errdefs.InvalidConfiguration("Line %d: Unknown directive: %s", lineNum, strings.ToUpper(directive))
	}
}

// BaseImage returns the image of the first BASE instruction, or "".
func (c *Cubofile) BaseImage() string {
	for _, inst := range c.Instructions {
		if inst.Kind == KindBase {
			return inst.Image
		}
	}
	return ""
}

// RunCommands returns all RUN commands in textual order.
func (c *Cubofile) RunCommands() []string {
	var commands []string
	for _, inst := range c.Instructions {
		if inst.Kind == KindRun {
			commands = append(commands, inst.Command)
		}
	}
	return commands
}
