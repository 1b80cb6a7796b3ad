package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/Giulio2002/mdmp"
)

type readParams struct {
	file    string
	address uint64
	size    string
	raw     bool
}

func addReadParams(cmd *kingpin.CmdClause) *readParams {
	params := &readParams{}
	cmd.Arg("file", "minidump file path").Required().ExistingFileVar(&params.file)
	cmd.Arg("address", "Virtual address to read from, decimal or 0x-prefixed hex.").Required().Uint64Var(&params.address)
	cmd.Arg("size", "Number of bytes to read, e.g. 0x40, 256 or 4KiB.").Default("0x100").StringVar(&params.size)
	cmd.Flag("raw", "Write the bytes unformatted.").Default("false").BoolVar(&params.raw)
	return params
}

// parseSize accepts plain integers in any base strconv understands and
// falls back to human sizes.
func parseSize(s string) (uint64, error) {
	if n, err := strconv.ParseUint(s, 0, 64); err == nil {
		return n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n, nil
}

func readMemory(ctx context.Context, params *readParams) error {
	size, err := parseSize(params.size)
	if err != nil {
		return err
	}

	r, err := mdmp.Open(params.file, mdmp.WithLogger(logger))
	if err != nil {
		return err
	}
	defer r.Close()

	data, err := r.ReadVirtualMemory(params.address, size)
	if err != nil {
		return err
	}
	level.Debug(logger).Log("msg", "read memory", "address", fmt.Sprintf("%#x", params.address), "size", humanize.IBytes(size))

	out := output(ctx)
	if params.raw {
		_, err = out.Write(data)
		return err
	}
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		line := hex.Dump(data[off:end])
		// hex.Dump numbers lines from zero; prefix the virtual address instead.
		if _, err := fmt.Fprintf(out, "%016x%s", params.address+uint64(off), line[8:]); err != nil {
			return err
		}
	}
	return nil
}
