package shell

import (
	"context"

	"github.com/codebymarcos/vbox/internal/sched"
	"github.com/codebymarcos/vbox/internal/vps"
)

// Root returns the root process of a vps: a shell loop bound to the machine
// that serves one attached session at a time until the instance stops. The
// working directory carries over between sessions.
func Root(env *vps.Env) sched.Job {
	l := env.Console.Listen()
	return sched.JobFunc(func(ctx context.Context) error {
		cwd := "/"
		for {
			sess, ok := l.Accept(ctx)
			if !ok {
				return nil
			}

			sh := New(env, sess.In, sess.Out,
				WithPrompt(sess.Prompt),
				WithLabel(env.Name+":"),
			)
			sh.cwd = cwd
			err := sh.Run(ctx)
			cwd = sh.cwd
			sess.Finish(err)
		}
	})
}
