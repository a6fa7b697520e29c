// Package stylesheet compiles Sass and SCSS sources to CSS.
package stylesheet

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"
)

// Syntax is the source dialect handed to the compiler.
type Syntax string

const (
	SyntaxSCSS Syntax = "scss"
	SyntaxSass Syntax = "sass"
)

// SyntaxForExt maps a file extension to a stylesheet syntax.
func SyntaxForExt(ext string) (Syntax, bool) {
	switch strings.ToLower(ext) {
	case ".scss":
		return SyntaxSCSS, true
	case ".sass":
		return SyntaxSass, true
	default:
		return "", false
	}
}

// Compiler turns stylesheet source into CSS.
type Compiler interface {
	Compile(source string, syntax Syntax, includePaths []string) (string, error)
	Close() error
}

// DartSass compiles through an embedded Dart Sass process. The process is
// started on first use so builds without stylesheets never spawn it.
type DartSass struct {
	opts godartsass.Options

	once     sync.Once
	startErr error
	mu       sync.Mutex
	t        *godartsass.Transpiler
}

// NewDartSass returns a lazily started compiler. An empty binary path lets
// godartsass look up the dart-sass executable on PATH.
func NewDartSass(binary string) *DartSass {
	return &DartSass{opts: godartsass.Options{DartSassEmbeddedFilename: binary}}
}

func (d *DartSass) start() error {
	d.once.Do(func() {
		t, err := godartsass.Start(d.opts)
		if err != nil {
			d.startErr = fmt.Errorf("start dart sass: %w", err)
			return
		}
		d.mu.Lock()
		d.t = t
		d.mu.Unlock()
	})
	return d.startErr
}

// Compile implements Compiler. The transpiler multiplexes concurrent calls.
func (d *DartSass) Compile(source string, syntax Syntax, includePaths []string) (string, error) {
	if err := d.start(); err != nil {
		return "", err
	}
	d.mu.Lock()
	t := d.t
	d.mu.Unlock()
	if t == nil {
		return "", fmt.Errorf("dart sass is closed")
	}

	src := godartsass.SourceSyntaxSCSS
	if syntax == SyntaxSass {
		src = godartsass.SourceSyntaxSASS
	}
	res, err := t.Execute(godartsass.Args{
		Source:       source,
		SourceSyntax: src,
		IncludePaths: includePaths,
		OutputStyle:  godartsass.OutputStyleExpanded,
	})
	if err != nil {
		return "", err
	}
	return res.CSS, nil
}

// Close stops the Dart Sass process if it was started.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		return nil
	}
	err := d.t.Close()
	d.t = nil
	return err
}
