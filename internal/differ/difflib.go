package differ

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// diffDifflib diffs with difflib.SequenceMatcher. Autojunk is disabled so frequent lines (blank lines, closing braces) still match.
func diffDifflib(a, b []string) ([]Run, error) {
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)
	opCodes := matcher.GetOpCodes()
	return opCodesToRuns(opCodes, a, b)
}

func opCodesToRuns(opCodes []difflib.OpCode, a, b []string) ([]Run, error) {
	runs := make([]Run, 0, len(opCodes))

	for _, op := range opCodes {
		switch op.Tag {
		case 'e':
			runs = append(runs, Run{Op: Equal, Lines: a[op.I1:op.I2]})
		case 'd':
			runs = append(runs, Run{Op: Removed, Lines: a[op.I1:op.I2]})
		case 'i':
			runs = append(runs, Run{Op: Added, Lines: b[op.J1:op.J2]})
		case 'r':
			if op.I1 < op.I2 {
				runs = append(runs, Run{Op: Removed, Lines: a[op.I1:op.I2]})
			}
			if op.J1 < op.J2 {
				runs = append(runs, Run{Op: Added, Lines: b[op.J1:op.J2]})
			}
		default:
			return nil, fmt.Errorf("unsupported opcode tag: %q", op.Tag)
		}
	}

	return runs, nil
}
