package checkpointer

import (
	"fmt"
	"path/filepath"
)

// runFiles numbers the checkpoint files of a single run
type runFiles struct {
	dir, runID, extension string
	saved                 int
}

func (r *runFiles) next() string {
	r.saved++
	name := fmt.Sprintf("%s-%06d%s", r.runID, r.saved, r.extension)
	return filepath.Join(r.dir, name)
}

// RunFilenames returns a function producing the checkpoint filenames of
// a run: dir/<runID>-000001<extension>, dir/<runID>-000002<extension>,
// and so on, so that checkpoints of different runs can share dir and
// sort in the order they were taken.
func RunFilenames(dir, runID, extension string) func() string {
	files := &runFiles{dir: dir, runID: runID, extension: extension}
	return files.next
}
