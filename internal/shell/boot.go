package shell

import (
	"context"
	"fmt"
	"time"

	"github.com/codebymarcos/vbox/internal/sched"
	"github.com/codebymarcos/vbox/internal/vps"
)

// Boot returns the one-shot boot job of a vps: it writes the machine identity
// under /etc and prepares /home/root.
func Boot(env *vps.Env) sched.Job {
	return sched.JobFunc(func(context.Context) error {
		fs := env.FS

		if _, err := fs.CreateFile("/etc/hostname"); err != nil {
			return fmt.Errorf("create hostname: %w", err)
		}
		if err := fs.WriteFile("/etc/hostname", []byte(env.Name)); err != nil {
			return fmt.Errorf("write hostname: %w", err)
		}

		line := fmt.Sprintf("boot %s\n", time.Now().UTC().Format(time.RFC3339))
		if err := fs.WriteFile("/etc/boot.log", []byte(line)); err != nil {
			return fmt.Errorf("write boot log: %w", err)
		}

		if _, err := fs.Get("/home/root"); err != nil {
			if _, err := fs.CreateDir("/home/root"); err != nil {
				return fmt.Errorf("create home: %w", err)
			}
		}
		return nil
	})
}
