package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

const stampLayout = "2006_01_02_15_04_05"

// outputPath returns <root>/<participant>/<name>, where name defaults to
// dynamic_seg_<timestamp>.csv.
func outputPath(root, participant, name string, now time.Time) string {
	if name == "" {
		name = "dynamic_seg_" + now.Format(stampLayout) + ".csv"
	}
	return filepath.Join(root, participant, filepath.Base(name))
}

// sessionID identifies one run across the CSV, mirrors and monitor.
func sessionID(participant string, now time.Time) string {
	return participant + "-" + now.Format(stampLayout)
}

// promptParticipant asks for the participant number until a non-empty,
// path-safe value is entered.
func promptParticipant(in io.Reader, out io.Writer) (string, error) {
	prompt := color.New(color.FgCyan, color.Bold)
	r := bufio.NewReader(in)
	for {
		prompt.Fprint(out, "Participant Number: ")
		line, err := r.ReadString('\n')
		p := strings.TrimSpace(line)
		if p != "" {
			if verr := validParticipant(p); verr != nil {
				color.New(color.FgYellow).Fprintf(out, "%v\n", verr)
			} else {
				return p, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no participant number entered")
			}
			return "", err
		}
	}
}

func validParticipant(p string) error {
	if p == "." || p == ".." || strings.ContainsAny(p, `/\`) {
		return fmt.Errorf("invalid participant number %q", p)
	}
	return nil
}
