package dscl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
)

// runWithPrompts executes a command behind a PTY and answers its
// interactive password prompts with the command's secrets, in order.
// sysadminctl prompts once per "-" placeholder on argv, so secrets are
// matched positionally.
func runWithPrompts(ctx context.Context, c Command) (string, error) {
	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	f, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("%s: start: %w", c, err)
	}
	defer func() { _ = f.Close() }()

	answered := 0
	var out bytes.Buffer
	readerDone := make(chan struct{})

	go func() {
		defer close(readerDone)
		br := bufio.NewReader(f)
		buf := make([]byte, 4096)
		for {
			_ = f.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
			n, rerr := br.Read(buf)
			if n > 0 {
				out.Write(buf[:n])
				prompts := strings.Count(strings.ToLower(out.String()), "password")
				for answered < len(c.Secrets) && prompts > answered {
					_, _ = io.WriteString(f, c.Secrets[answered]+"\n")
					answered++
				}
			}
			if rerr != nil {
				return
			}
		}
	}()

	err = cmd.Wait()
	<-readerDone

	if ctx.Err() == context.DeadlineExceeded {
		return out.String(), fmt.Errorf("%s: %w", c, ErrCommandTimeout)
	}
	if err != nil {
		return out.String(), fmt.Errorf("%s: %w", c, err)
	}
	return out.String(), nil
}
