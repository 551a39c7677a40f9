package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	if src == dst {
		return nil
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(destFile, sourceFile)
	if closeErr := destFile.Close(); err == nil {
		err = closeErr
	}
	return err
}

// importFile copies src into dir as name plus the source extension and
// returns the new path
func importFile(src, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name+strings.ToLower(filepath.Ext(src)))
	if err := copyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return dst, nil
}

var stdin = bufio.NewReader(os.Stdin)

// prompt prints label and reads one trimmed line from stdin
func prompt(label string) string {
	fmt.Print(label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

// confirm asks a yes/no question, defaulting to no
func confirm(question string) bool {
	switch strings.ToLower(prompt(question + " [y/N] ")) {
	case "y", "yes":
		return true
	}
	return false
}
