// Package session wires every other component into one run: it loads a
// binary, builds the right CPU profile and disassembler, drives the
// Scheduler across every executable section, and hands the result to the
// Output Pipeline (spec.md §2's end-to-end control flow, §4.6).
package session

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ropgadget/cpu"
	"ropgadget/disasm"
	"ropgadget/errtag"
	"ropgadget/format"
	"ropgadget/format/dfs"
	"ropgadget/gadget"
	"ropgadget/output"
	"ropgadget/pattern"
	"ropgadget/scheduler"
	"ropgadget/section"
	"ropgadget/walker"
)

// Session carries every piece of configuration a run needs. Callers set
// its exported fields before calling Run; Run itself does not change them.
type Session struct {
	Path       string
	Arch       cpu.Arch
	ArchSet    bool // false means derive Arch from the container image instead
	NbThread   int
	UniqueOnly bool
	UseColor   bool
	Verbosity  int
	ImageBase  uint64
	OutputFile string
	Types      []gadget.Group // ret/call/jmp groups requested
	Limits     walker.Limits
	DFS        bool // treat Path as an Acorn DFS disk image instead of an ELF/PE/Mach-O container

	log *logrus.Logger
}

// New builds a Session for path with default settings; the caller adjusts
// exported fields before calling Run, mirroring the original tool's builder
// style where every CLI flag maps directly onto a session field.
func New(path string) *Session {
	return &Session{
		Path:       path,
		NbThread:   1,
		UseColor:   true,
		Types:      []gadget.Group{gadget.Ret}, // spec.md §4.6 default terminator_group is Ret
	}
}

func newLogger(verbosity int) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{ForceColors: true, DisableTimestamp: true})

	switch {
	case verbosity <= 0:
		log.SetLevel(logrus.ErrorLevel)
	case verbosity == 1:
		log.SetLevel(logrus.WarnLevel)
	case verbosity == 2:
		log.SetLevel(logrus.InfoLevel)
	case verbosity == 3:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.TraceLevel)
	}
	return log
}

// Log returns the session's configured logger, building one lazily from
// Verbosity if Run hasn't been called yet.
func (s *Session) Log() *logrus.Logger {
	if s.log == nil {
		s.log = newLogger(s.Verbosity)
	}
	return s.log
}

// Run loads the binary, scans it for gadgets of every requested group, and
// runs the result through the Output Pipeline. It returns the final
// ordered gadget list.
func (s *Session) Run() ([]gadget.Gadget, error) {
	s.log = newLogger(s.Verbosity)
	start := time.Now()

	var sections []section.Section
	arch := s.Arch

	if s.DFS {
		if !s.ArchSet {
			return nil, errtag.Wrap(errtag.InvalidInput, "session: --architecture is required to scan a DFS disk image, which carries no machine tag")
		}
		var err error
		sections, err = dfs.Load(s.Path, s.Arch)
		if err != nil {
			return nil, err
		}
		s.log.Infof("session: loaded DFS image %s (%s), %d file(s)", s.Path, arch, len(sections))
		return s.runOn(sections, arch, start)
	}

	img, err := format.Load(s.Path)
	if err != nil {
		return nil, err
	}

	arch = img.Arch
	if s.ArchSet {
		arch = s.Arch
	}
	sections = filterExecutable(img.Sections)
	s.log.Infof("session: loaded %s (%s), %d executable section(s)", s.Path, arch, len(sections))
	return s.runOn(sections, arch, start)
}

// runOn drives the Scheduler and Output Pipeline over sections already
// extracted from either an ELF/PE/Mach-O container or a DFS disk image.
func (s *Session) runOn(execSections []section.Section, arch cpu.Arch, start time.Time) ([]gadget.Gadget, error) {
	prof, err := cpu.ForArch(arch)
	if err != nil {
		return nil, errtag.Wrap(errtag.UnsupportedArchitecture, err.Error())
	}

	dis, err := disasm.New(arch)
	if err != nil {
		return nil, errtag.Wrap(errtag.UnsupportedArchitecture, err.Error())
	}

	var all []gadget.Gadget
	for _, group := range s.Types {
		termGroup, err := terminatorGroupFor(group)
		if err != nil {
			return nil, err
		}

		cfg := scheduler.Config{
			Profile:         prof,
			TerminatorGroup: termGroup,
			RequestedGroup:  group,
			Strategy:        pattern.Fast,
			Disassembler:    dis,
			Limits:          s.Limits,
			NbThread:        s.NbThread,
			Log:             s.log,
		}
		all = append(all, scheduler.Run(execSections, cfg)...)
	}

	opts := output.Options{
		UniqueOnly: s.UniqueOnly,
		UseColor:   s.UseColor,
		Is64Bit:    prof.PointerSize == 8,
		ImageBase:  s.ImageBase,
	}
	if s.OutputFile != "" {
		opts.Sink = output.File
		opts.FilePath = s.OutputFile
		opts.UseColor = false
	} else {
		opts.Sink = output.Console
	}

	result, err := output.Run(all, opts)
	if err != nil {
		return nil, errtag.Wrap(errtag.IoFailure, err.Error())
	}

	s.log.Infof("session: found %d gadget(s) (%d before dedup) in %s", len(result), len(all), time.Since(start).Round(time.Millisecond))
	return result, nil
}

func filterExecutable(sections []section.Section) []section.Section {
	out := make([]section.Section, 0, len(sections))
	for _, s := range sections {
		if s.Executable() {
			out = append(out, s)
		}
	}
	return out
}

func terminatorGroupFor(g gadget.Group) (cpu.TerminatorGroup, error) {
	switch g {
	case gadget.Ret:
		return cpu.GroupRet, nil
	case gadget.Call:
		return cpu.GroupCall, nil
	case gadget.Jump:
		return cpu.GroupJump, nil
	default:
		return 0, errtag.Wrap(errtag.InvalidInput, fmt.Sprintf("session: %s is not a requestable gadget type", g))
	}
}
