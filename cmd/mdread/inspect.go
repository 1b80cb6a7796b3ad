package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/Giulio2002/mdmp"
)

func open(path string) (*mdmp.Reader, error) {
	return mdmp.Open(path, mdmp.WithLogger(logger), mdmp.WithAccessAdvice(mdmp.AdviceSequential))
}

func hexAddr(v uint64) string {
	return fmt.Sprintf("%#016x", v)
}

func listRegions(ctx context.Context, path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	regions, err := r.MemoryRegions()
	if err != nil {
		return err
	}

	var total uint64
	table := tablewriter.NewWriter(output(ctx))
	table.SetHeader([]string{"Start", "End", "Size", "File offset"})
	for _, region := range regions {
		total += region.Size
		table.Append([]string{
			hexAddr(region.Base),
			hexAddr(region.End()),
			humanize.IBytes(region.Size),
			fmt.Sprintf("%#x", region.Data.RVA),
		})
	}
	table.SetFooter([]string{"", strconv.Itoa(len(regions)) + " regions", humanize.IBytes(total), ""})
	table.Render()
	return nil
}

func listStreams(ctx context.Context, path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	streams, err := r.Streams()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(output(ctx))
	table.SetHeader([]string{"Type", "Offset", "Size"})
	for _, s := range streams {
		table.Append([]string{
			s.Type.String(),
			fmt.Sprintf("%#x", s.Location.RVA),
			humanize.IBytes(s.Location.Size),
		})
	}
	table.Render()
	return nil
}

func listThreads(ctx context.Context, path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	threads, err := r.ThreadList()
	if err != nil {
		return err
	}
	var crashed uint32
	var hasException bool
	if e, err := r.Exception(); err == nil {
		crashed, hasException = e.ThreadID, true
	}

	table := tablewriter.NewWriter(output(ctx))
	table.SetHeader([]string{"ID", "Suspend", "Priority", "TEB", "Stack", "Stack size", "Context"})
	for _, t := range threads.Threads {
		id := strconv.FormatUint(uint64(t.ID), 10)
		if hasException && t.ID == crashed {
			id += " *"
		}
		table.Append([]string{
			id,
			strconv.FormatUint(uint64(t.SuspendCount), 10),
			strconv.FormatUint(uint64(t.Priority), 10),
			hexAddr(t.TEB),
			hexAddr(t.Stack.Start),
			humanize.IBytes(t.Stack.Data.Size),
			humanize.IBytes(t.Context.Size),
		})
	}
	table.Render()
	return nil
}

func listModules(ctx context.Context, path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	modules, err := r.ModuleList()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(output(ctx))
	table.SetHeader([]string{"Base", "Size", "Version", "Name"})
	for _, m := range modules.Modules {
		table.Append([]string{
			hexAddr(m.Base),
			humanize.IBytes(uint64(m.Size)),
			m.Version(),
			m.Name,
		})
	}
	table.Render()
	return nil
}

// systemInfo prints whatever descriptive streams the dump carries.
// Missing streams are skipped.
func systemInfo(ctx context.Context, path string) error {
	r, err := open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	out := output(ctx)
	h, err := r.Header()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Captured:", h.Time().UTC(), "("+humanize.Time(h.Time())+")")

	switch si, err := r.SystemInfo(); {
	case err == nil:
		fmt.Fprintln(out, "OS:      ", si.OS())
		fmt.Fprintln(out, "CPU:     ", si.CPUString())
	case !mdmp.IsStreamMissing(err):
		return err
	}

	switch misc, err := r.MiscInfo(); {
	case err == nil:
		if misc.HasProcessID() {
			fmt.Fprintln(out, "PID:     ", misc.ProcessID)
		}
		if misc.HasProcessTimes() {
			fmt.Fprintln(out, "Started: ", misc.CreateTime().UTC())
		}
	case !mdmp.IsStreamMissing(err):
		return err
	}

	switch e, err := r.Exception(); {
	case err == nil:
		fmt.Fprintln(out, "Crash:   ", e.String())
	case !mdmp.IsStreamMissing(err):
		return err
	}
	return nil
}
