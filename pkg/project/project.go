// Package project ties a declarative circuit source to an on-disk KiCad
// project directory: it loads or creates the sheet files, runs the
// synchronization engine over them, and commits the results atomically.
// One Project owns its directory for the duration of a run; callers must
// not run two synchronizations against the same directory concurrently.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/schemaforge/esync/pkg/circuit"
	"github.com/schemaforge/esync/pkg/esync"
	"github.com/schemaforge/esync/pkg/kicad/schematic"
)

// SheetExt is the file extension for schematic sheets
const SheetExt = ".kicad_sch"

// generatorVersion is stamped into sheet files this tool creates
const generatorVersion = "1.0.0"

// Project is one project directory plus its declarative source
type Project struct {
	Dir    string
	Config *Config
	Design *circuit.Design
	Root   *esync.SheetNode

	// BoardFiles are .kicad_pcb files found in the directory. The
	// synchronizer owns no board semantics; boards ride along untouched
	// and are only checked for lossless round-tripping.
	BoardFiles []string
}

// Open loads the project in dir: its configuration, its declarative
// source and the sheet files. Sheets that do not exist on disk yet are
// created in memory; nothing is written until Commit.
func Open(dir string) (*Project, error) {
	cfg, err := LoadConfig(dir)
	if err != nil {
		return nil, err
	}

	source := cfg.Source
	if source == "" {
		if source, err = findSource(dir); err != nil {
			return nil, err
		}
	}

	design, err := circuit.LoadFile(filepath.Join(dir, source))
	if err != nil {
		return nil, err
	}
	if cfg.Project != "" {
		design.Project = cfg.Project
	}

	p := &Project{Dir: dir, Config: cfg, Design: design}
	if p.Root, err = p.buildTree(design.Root, nil); err != nil {
		return nil, err
	}
	if p.BoardFiles, err = filepath.Glob(filepath.Join(dir, "*.kicad_pcb")); err != nil {
		return nil, err
	}
	return p, nil
}

// findSource locates the declarative source when the config names none.
// Exactly one candidate must exist; guessing among several would sync the
// wrong circuit.
func findSource(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.ecl"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no circuit source in %s: name one in %s", dir, ConfigName)
	case 1:
		return filepath.Base(matches[0]), nil
	default:
		return "", fmt.Errorf("multiple circuit sources in %s: name one in %s", dir, ConfigName)
	}
}

func sheetFileName(name string) string {
	return strings.ReplaceAll(name, string(os.PathSeparator), "_") + SheetExt
}

// buildTree loads or creates the schematic behind each declarative sheet
// and assigns hierarchy paths. A child's path element is the uuid of the
// sheet reference on its parent, which is what the host tool records in
// per-component instance data.
func (p *Project) buildTree(sheet *circuit.Sheet, parent *esync.SheetNode) (*esync.SheetNode, error) {
	file := sheetFileName(sheet.Name)
	doc, err := p.loadOrCreate(file)
	if err != nil {
		return nil, err
	}

	node := &esync.SheetNode{
		Name:   sheet.Name,
		Target: sheet,
		Doc:    doc,
		File:   file,
		Parent: parent,
	}

	if parent == nil {
		node.Path = "/" + doc.UUID
	} else {
		ref := sheetRefByFile(parent.Doc, file)
		if ref == nil {
			ref = parent.Doc.AddSheetRef(sheet.Name, file,
				schematic.Position{X: 152.4, Y: 25.4 + 38.1*float64(len(parent.Children))},
				schematic.Size{Width: 38.1, Height: 25.4},
				uuid.NewString())
		}
		node.Path = parent.Path + "/" + ref.UUID
	}

	for _, child := range sheet.Children {
		cn, err := p.buildTree(child, node)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, cn)
	}
	return node, nil
}

func (p *Project) loadOrCreate(file string) (*schematic.Schematic, error) {
	path := filepath.Join(p.Dir, file)
	if _, err := os.Stat(path); err == nil {
		doc, err := schematic.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", file, err)
		}
		return doc, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	return schematic.New(uuid.NewString(), generatorVersion), nil
}

func sheetRefByFile(doc *schematic.Schematic, file string) *schematic.SheetRef {
	for _, ref := range doc.SheetRefs() {
		if ref.File == file {
			return ref
		}
	}
	return nil
}

// Options derives the engine options from the project configuration
func (p *Project) Options() esync.Options {
	return esync.Options{
		Project:     p.Design.Project,
		GridOriginX: p.Config.Placement.OriginX,
		GridOriginY: p.Config.Placement.OriginY,
		GridSpacing: p.Config.Placement.Spacing,
		GridColumns: p.Config.Placement.Columns,
		PowerNets:   p.Config.PowerNets,
	}
}

// Sync reconciles every sheet, resolves nets across the tree and applies
// the edits in memory. Commit persists the outcome.
func (p *Project) Sync() (*esync.Result, error) {
	opts := p.Options()

	var sets []*esync.EditSet
	var walkErr error
	p.Root.Walk(func(n *esync.SheetNode) {
		if walkErr != nil {
			return
		}
		set, err := esync.Reconcile(n, opts)
		if err != nil {
			walkErr = err
			return
		}
		sets = append(sets, set)
	})
	if walkErr != nil {
		return nil, walkErr
	}

	plan, err := esync.ResolveNets(p.Root, opts)
	if err != nil {
		return nil, err
	}

	return esync.Apply(p.Root, sets, plan, opts)
}

// Commit writes every modified or not-yet-created sheet file atomically,
// then pushes identity assignments back into the declarative source.
func (p *Project) Commit(res *esync.Result) error {
	if err := p.commitSheets(res); err != nil {
		return err
	}
	return p.commitSource(res)
}

func (p *Project) commitSheets(res *esync.Result) error {
	dirty := make(map[*esync.SheetNode]bool, len(res.Dirty))
	for _, n := range res.Dirty {
		dirty[n] = true
	}

	var writes []FileWrite
	p.Root.Walk(func(n *esync.SheetNode) {
		path := filepath.Join(p.Dir, n.File)
		if !dirty[n] {
			if _, err := os.Stat(path); err == nil {
				return
			}
		}
		writes = append(writes, FileWrite{Path: path, Data: n.Doc.Bytes()})
	})
	return WriteAll(writes)
}

func (p *Project) commitSource(res *esync.Result) error {
	if len(res.SourceEdits) == 0 {
		return nil
	}

	path := filepath.Join(p.Dir, filepath.Base(p.Design.SourcePath))
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read circuit source for write-back: %w", err)
	}

	out, err := circuit.Rewrite(src, path, res.SourceEdits)
	if err != nil {
		return err
	}
	return WriteAll([]FileWrite{{Path: path, Data: out}})
}

// SheetFiles returns the absolute path of every sheet file in the tree
func (p *Project) SheetFiles() []string {
	var files []string
	p.Root.Walk(func(n *esync.SheetNode) {
		files = append(files, filepath.Join(p.Dir, n.File))
	})
	return files
}

// SourceFile returns the absolute path of the declarative source
func (p *Project) SourceFile() string {
	return filepath.Join(p.Dir, filepath.Base(p.Design.SourcePath))
}

// RootSheetFile returns the absolute path of the root sheet file
func (p *Project) RootSheetFile() string {
	return filepath.Join(p.Dir, p.Root.File)
}
