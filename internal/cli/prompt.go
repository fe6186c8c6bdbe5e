package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptSecret prints label and reads one line from stdin. Echo is turned
// off when stdin is a terminal; piped input is read as is.
func PromptSecret(stdin *os.File, out io.Writer, label string) (string, error) {
	if stdin == nil {
		return "", errors.New("stdin unavailable")
	}
	fmt.Fprint(out, label)

	if restore, err := disableEcho(stdin); err == nil {
		defer func() {
			restore()
			fmt.Fprintln(out)
		}()
	}
	return readLine(stdin)
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return "", errors.New("no input")
	}
	return line, nil
}
