package gitindex

import (
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/src-d/enry/v2"
)

// diffTimeout bounds a single similarity computation.
const diffTimeout = time.Second

// similarity returns how much of the two texts is shared, in percent of
// their combined line count.
func similarity(a, b []byte) int {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = diffTimeout

	src, dst, _ := dmp.DiffLinesToRunes(string(a), string(b))

	total := len(src) + len(dst)
	if total == 0 {
		return 100
	}

	common := 0

	for _, d := range dmp.DiffMainRunes(src, dst, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			common += len([]rune(d.Text))
		}
	}

	return 2 * common * 100 / total
}

// sizesCompatible reports whether two files of these sizes could still reach
// threshold: the shared part is at most the smaller file.
func sizesCompatible(a, b int64, threshold int) bool {
	if a+b == 0 {
		return true
	}

	return 2*min(a, b)*100 >= int64(threshold)*(a+b)
}

func isBinary(data []byte) bool {
	return enry.IsBinary(data)
}
