package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/medamarfilali/cubo/pkg/runtime"
	"github.com/medamarfilali/cubo/pkg/storage"
)

var logsCmd = &cobra.Command{
	Use:   "logs <container>",
	Short: "Show container logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		timestamps, _ := cmd.Flags().GetBool("timestamps")
		tail, _ := cmd.Flags().GetInt("tail")

		cfg := runtime.ConfigFromEnv()
		engine, err := runtime.New(cfg)
		if err != nil {
			return err
		}

		containerID, err := engine.ResolveContainer(args[0])
		if err != nil {
			return err
		}

		logPath := storage.LogPath(cfg.RootDir, containerID)
		if _, err := os.Stat(logPath); err != nil {
			fmt.Printf("No logs available for container %s\n", args[0])
			return nil
		}

		if follow {
			return followLogs(logPath, timestamps)
		}
		return printLogs(os.Stdout, logPath, tail, timestamps)
	},
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().BoolP("timestamps", "t", false, "Show timestamps")
	logsCmd.Flags().Int("tail", 0, "Number of lines to show from the end (0 = all)")
}

func printLogs(w io.Writer, logPath string, tail int, timestamps bool) error {
	f, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}

	for _, line := range lines {
		fmt.Fprintln(w, renderLogLine(line, timestamps))
	}
	return nil
}

func followLogs(logPath string, timestamps bool) error {
	f, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Println(renderLogLine(strings.TrimSuffix(line, "\n"), timestamps))
	}
}

func renderLogLine(line string, timestamps bool) string {
	if timestamps {
		return line
	}
	if msg, ok := stripTimestamp(line); ok {
		return msg
	}
	return line
}

// stripTimestamp drops the leading timestamp of a log record. Records
// are "<RFC3339Nano> <message>"; anything whose first whitespace is not
// where a timestamp would end is passed through untouched.
func stripTimestamp(line string) (string, bool) {
	pos := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if pos > 20 && pos < 36 {
		return strings.TrimLeft(line[pos:], " \t"), true
	}
	return "", false
}
