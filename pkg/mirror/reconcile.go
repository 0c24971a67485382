package mirror

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/treemirror/pkg/errors"
)

// Report summarizes a reconciliation pass.
type Report struct {
	CreatedDirs  int
	CopiedFiles  int
	UpdatedFiles int

	// Failures contains the per-entry errors that were skipped over.
	Failures []error
}

// Mutations returns the total number of filesystem changes made by the pass.
func (r Report) Mutations() int {
	return r.CreatedDirs + r.CopiedFiles + r.UpdatedFiles
}

func (r *Report) record(action Action) {
	switch action {
	case ActionCreateDir:
		r.CreatedDirs++
	case ActionCopy:
		r.CopiedFiles++
	case ActionUpdate:
		r.UpdatedFiles++
	}
}

func (r *Report) fail(err error) {
	r.Failures = append(r.Failures, err)
}

// Reconcile brings `rootA` and `rootB` in sync in a single blocking pass.
// Entries that only exist in one tree are created in the other. Files whose
// contents differ are resolved in favor of the later modification time, with
// `rootA` winning ties. Nothing is ever deleted.
//
// Errors on individual entries are logged and collected in the Report. Only
// invalid roots and roots that can't be walked abort the pass.
func Reconcile(rootA, rootB string, opts ...Option) (Report, error) {
	roots, err := NewRoots(rootA, rootB)
	if err != nil {
		return Report{}, err
	}
	o := newOptions(opts)
	r := reconciler{
		roots:    roots,
		opts:     o,
		executor: &Executor{opts: o},
	}
	return r.run()
}

type reconciler struct {
	roots    Roots
	opts     options
	executor *Executor
}

func (r reconciler) run() (Report, error) {
	a, err := TakeInventory(r.roots.Left)
	if err != nil {
		return Report{}, err
	}
	b, err := TakeInventory(r.roots.Right)
	if err != nil {
		return Report{}, err
	}

	var report Report
	r.createMissingDirs(&report, a, b)
	r.createMissingDirs(&report, b, a)
	r.syncFiles(&report, a, b)
	r.copyMissingFiles(&report, b, a)

	r.opts.logf("sync finished")
	log.WithFields(log.Fields{
		"createdDirs":  report.CreatedDirs,
		"copiedFiles":  report.CopiedFiles,
		"updatedFiles": report.UpdatedFiles,
		"failures":     len(report.Failures),
	}).Debug("Reconciliation complete")
	return report, nil
}

func (r reconciler) createMissingDirs(report *Report, from, to Inventory) {
	for _, dir := range from.Dirs {
		if _, ok := to.Dir(dir.RelPath); ok {
			continue
		}
		dst := filepath.Join(to.Root, dir.RelPath)
		r.apply(report, dir.AbsPath, dst, true)
	}
}

// syncFiles copies files that are missing from `b` and resolves files that
// exist on both sides.
func (r reconciler) syncFiles(report *Report, a, b Inventory) {
	for _, aFile := range a.Files {
		bFile, ok := b.File(aFile.RelPath)
		if !ok {
			r.apply(report, aFile.AbsPath, filepath.Join(b.Root, aFile.RelPath), false)
			continue
		}

		equal, err := filesEqual(aFile.AbsPath, bFile.AbsPath)
		if err != nil {
			r.skip(report, err)
			continue
		}
		if equal {
			continue
		}

		src, dst, err := newerFirst(aFile.AbsPath, bFile.AbsPath)
		if err != nil {
			r.skip(report, err)
			continue
		}
		r.apply(report, src, dst, false)
	}
}

func (r reconciler) copyMissingFiles(report *Report, from, to Inventory) {
	for _, file := range from.Files {
		if _, ok := to.File(file.RelPath); ok {
			continue
		}
		r.apply(report, file.AbsPath, filepath.Join(to.Root, file.RelPath), false)
	}
}

func (r reconciler) apply(report *Report, src, dst string, isDirectory bool) {
	action, err := r.executor.Replicate(src, dst, isDirectory)
	if err != nil {
		r.skip(report, err)
		return
	}
	report.record(action)
}

func (r reconciler) skip(report *Report, err error) {
	entry := log.WithError(err)
	if fsErr, ok := errors.IsFilesystemError(err); ok {
		entry = entry.WithFields(log.Fields{"path": fsErr.Path, "kind": fsErr.Kind()})
	}
	entry.Warn("Failed to reconcile entry. Continuing with the remaining entries.")
	report.fail(err)
}

// newerFirst orders the two paths by modification time, latest first. When
// the times are equal, `a` is returned first.
func newerFirst(a, b string) (src, dst string, err error) {
	aInfo, err := fs.Stat(a)
	if err != nil {
		return "", "", errors.NewFilesystemError("stat", a, err)
	}
	bInfo, err := fs.Stat(b)
	if err != nil {
		return "", "", errors.NewFilesystemError("stat", b, err)
	}

	if bInfo.ModTime().After(aInfo.ModTime()) {
		return b, a, nil
	}
	return a, b, nil
}
