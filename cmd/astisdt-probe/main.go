package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/asticode/go-astikit"
	"github.com/asticode/go-astisdt"
	"github.com/pkg/profile"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Flags
var (
	ctx, cancel     = context.WithCancel(context.Background())
	configPath      = flag.String("c", "", "the toml configuration path")
	cpuProfiling    = flag.Bool("cp", false, "if yes, cpu profiling is enabled")
	format          = flag.String("f", "", "the format (text, json)")
	inputPath       = flag.String("i", "", "the input path")
	memoryProfiling = flag.Bool("mp", false, "if yes, memory profiling is enabled")
	pid             = flag.Uint("pid", uint(astisdt.PIDSDT), "the pid sections are extracted from when the input is a transport stream")
	skipCRC         = flag.Bool("skip-crc", false, "if yes, sections CRC32 are not checked")
	strict          = flag.Bool("strict", false, "if yes, any malformed data stops the probe")
	tables          = astikit.NewFlagStrings()
)

func main() {
	// Init
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s <sections|services>:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Var(tables, "t", "the tables whitelist (all, actual, other)")
	cmd := astikit.FlagCmd()
	flag.Parse()

	// Handle signals
	handleSignals()

	// Start profiling
	if *cpuProfiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *memoryProfiling {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	// Build configuration
	c, err := buildConfiguration()
	if err != nil {
		log.Fatal(fmt.Errorf("astisdt: building configuration failed: %w", err))
	}

	// Build the reader
	var r io.Reader
	if r, err = buildReader(); err != nil {
		log.Fatal(fmt.Errorf("astisdt: building reader failed: %w", err))
	}

	// Make sure the reader is closed properly
	if cl, ok := r.(io.Closer); ok {
		defer cl.Close()
	}

	// Build the section source
	next := buildSectionSource(r)

	// Switch on command
	switch cmd {
	case "sections":
		if err = sections(next, c); err != nil {
			log.Fatal(fmt.Errorf("astisdt: fetching sections failed: %w", err))
		}
	default:
		// Fetch networks
		var ns []*Network
		if ns, err = networks(next, c); err != nil {
			log.Fatal(fmt.Errorf("astisdt: fetching services failed: %w", err))
		}

		// Print
		switch c.Format {
		case formatJSON:
			e := json.NewEncoder(os.Stdout)
			e.SetIndent("", "  ")
			if err = e.Encode(ns); err != nil {
				log.Fatal(fmt.Errorf("astisdt: json encoding to stdout failed: %w", err))
			}
		default:
			fmt.Println("Networks are:")
			for _, n := range ns {
				log.Printf("* %s\n", n)
			}
		}
	}
}

func handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch)
	go func() {
		for s := range ch {
			if s != syscall.SIGURG {
				log.Printf("Received signal %s\n", s)
			}
			switch s {
			case syscall.SIGABRT, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
				cancel()
				return
			}
		}
	}()
}

func logWarn(err error) {
	log.Printf("warning: %s\n", err)
}

func buildConfiguration() (c Configuration, err error) {
	// Default
	c = newConfiguration()

	// File
	if *configPath != "" {
		if err = c.loadFile(*configPath); err != nil {
			err = fmt.Errorf("astisdt: loading configuration file failed: %w", err)
			return
		}
	}

	// Flags that were set override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			c.Format = strings.ToLower(*format)
		case "skip-crc":
			c.SkipCRC = *skipCRC
		case "strict":
			c.Strict = *strict
		case "t":
			ts := maps.Keys(tables.Map)
			slices.Sort(ts)
			c.Tables = normalizeTables(ts)
		}
	})

	// Validate
	if err = c.validate(); err != nil {
		err = fmt.Errorf("astisdt: validating configuration failed: %w", err)
		return
	}
	return
}

func buildReader() (r io.Reader, err error) {
	// Validate input
	if len(*inputPath) <= 0 {
		err = errors.New("use -i to indicate an input path")
		return
	}

	// Hex dump
	if strings.HasSuffix(strings.ToLower(*inputPath), ".hex") {
		// Read file
		var b []byte
		if b, err = os.ReadFile(*inputPath); err != nil {
			err = fmt.Errorf("astisdt: reading %s failed: %w", *inputPath, err)
			return
		}

		// Decode
		var bs []byte
		if bs, err = hex.DecodeString(strings.Join(strings.Fields(string(b)), "")); err != nil {
			err = fmt.Errorf("astisdt: hex decoding %s failed: %w", *inputPath, err)
			return
		}
		r = bytes.NewReader(bs)
		return
	}

	// Open file
	var f *os.File
	if f, err = os.Open(*inputPath); err != nil {
		err = fmt.Errorf("astisdt: opening %s failed: %w", *inputPath, err)
		return
	}
	r = f
	return
}

// nextSection reads the next complete section, headers and CRC32 included. Stuffing bytes
// between sections are skipped.
func nextSection(r *bufio.Reader) (bs []byte, err error) {
	// Skip stuffing
	var b byte
	for {
		if b, err = r.ReadByte(); err != nil {
			return
		}
		if b != 0xff {
			break
		}
	}

	// Get section length
	h := make([]byte, 2)
	if _, err = io.ReadFull(r, h); err != nil {
		err = fmt.Errorf("astisdt: reading section header failed: %w", err)
		return
	}
	l := int(h[0]&0xf)<<8 | int(h[1])

	// Get section
	bs = make([]byte, 3+l)
	bs[0], bs[1], bs[2] = b, h[0], h[1]
	if _, err = io.ReadFull(r, bs[3:]); err != nil {
		err = fmt.Errorf("astisdt: reading %d section bytes failed: %w", l, err)
		return
	}
	return
}

// sectionSource returns the next complete section or io.EOF
type sectionSource func() ([]byte, error)

func buildSectionSource(r io.Reader) sectionSource {
	// Raw sections
	p := strings.ToLower(*inputPath)
	if !strings.HasSuffix(p, ".ts") && !strings.HasSuffix(p, ".m2ts") {
		br := bufio.NewReader(r)
		return func() ([]byte, error) { return nextSection(br) }
	}

	// Transport stream
	dmx := astisdt.NewDemuxer(ctx, r, astisdt.DemuxerOptLogger(log.Default()), astisdt.DemuxerOptPID(uint16(*pid)))
	return func() (bs []byte, err error) {
		if bs, err = dmx.NextSection(); err != nil && errors.Is(err, astisdt.ErrNoMorePackets) {
			err = io.EOF
		}
		return
	}
}

// readSections feeds every section to the filter until EOF or cancellation
func readSections(next sectionSource, c Configuration, f *astisdt.SectionFilter) (err error) {
	for {
		// Check context
		if ctx.Err() != nil {
			return
		}

		// Get next section
		var bs []byte
		if bs, err = next(); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				err = nil
			} else if !c.Strict {
				// Truncated or unreadable input ends the read loop
				logWarn(err)
				err = nil
			}
			return
		}

		// Consume
		if err = f.Consume(bs); err != nil {
			if c.Strict {
				err = fmt.Errorf("astisdt: consuming section failed: %w", err)
				return
			}
			logWarn(err)
			err = nil
		}
	}
}

func sectionFilterOptions(c Configuration, opts ...func(*astisdt.SectionFilter)) []func(*astisdt.SectionFilter) {
	return append(opts, astisdt.SectionFilterOptLogger(log.Default()), astisdt.SectionFilterOptSkipCRC32(c.SkipCRC))
}

func sections(next sectionSource, c Configuration) error {
	log.Println("Fetching sections...")
	rt := astisdt.NewRouter(func(s astisdt.ActualOther[*astisdt.SDTSection]) {
		if !c.acceptsTable(s.IsOther()) {
			return
		}
		log.Printf("  %s\n", s.Value())
	}, astisdt.RouterOptLogger(log.Default()))
	f := astisdt.NewSectionFilter(rt, sectionFilterOptions(c, astisdt.SectionFilterOptHook(func(h astisdt.SectionHeader, sh astisdt.SectionSyntaxHeader, crc32 uint32) {
		if !c.acceptsTable(h.TableID == astisdt.PSITableIDSDTOther) {
			return
		}
		log.Printf("%s: transport stream id %d, section %d/%d, version %d, crc32 0x%.8x\n", h.TableID, sh.TableIDExtension, sh.SectionNumber, sh.LastSectionNumber, sh.VersionNumber, crc32)
	}))...)
	return readSections(next, c, f)
}

func networks(next sectionSource, c Configuration) (ns []*Network, err error) {
	// Read sections
	cl := newCollector(c)
	f := astisdt.NewSectionFilter(astisdt.NewRouter(cl.consume, astisdt.RouterOptLogger(log.Default())), sectionFilterOptions(c)...)
	log.Println("Fetching services...")
	if err = readSections(next, c, f); err != nil {
		return
	}

	// Collector failed
	if cl.err != nil {
		err = cl.err
		return
	}
	ns = cl.sortedNetworks()
	return
}
