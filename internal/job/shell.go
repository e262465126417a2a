package job

import (
	"fmt"

	"github.com/kballard/go-shellquote"
)

// shellWrapper builds the run script body for `client run`: change into
// wrkDir (shell-escaped so spaces and shell metacharacters in the path
// can't break out of the cd) and then run cmd verbatim.
func shellWrapper(cmd, wrkDir string) string {
	return fmt.Sprintf("#! /usr/bin/env bash\nset -x\ncd %s\n%s\n", shellquote.Join(wrkDir), cmd)
}
