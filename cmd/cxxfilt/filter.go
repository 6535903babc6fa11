package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/skdltmxn/cxxfilt-go/demangle"
)

// linesPerJob sizes a batch of stdin lines when demangling concurrently.
const linesPerJob = 64

const maxLineSize = 1 << 20

func (a *app) runFilter(cmd *cobra.Command, args []string) error {
	opts := a.cfg.DemangleOptions()
	if len(args) > 0 {
		for _, arg := range args {
			fmt.Fprintln(a.output, a.demangleName(arg, opts))
		}
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return a.filterLines(ctx, cmd.InOrStdin(), opts)
}

// demangleName demangles a whole argument. Names that fail to decode are
// returned unchanged, highlighted when colour is on.
func (a *app) demangleName(name string, opts []demangle.Option) string {
	mangled := name
	if a.cfg.StripUnderscore && strings.HasPrefix(mangled, "__Z") {
		mangled = mangled[1:]
	}
	result, err := demangle.Demangle(mangled, opts...)
	if err == nil {
		return result
	}

	var de *demangle.DecodeError
	if errors.As(err, &de) {
		a.logger.Debug("decode failed", "name", name, "kind", de.Kind, "offset", de.Offset, "msg", de.Msg)
	} else {
		a.logger.Debug("decode failed", "name", name, "err", err)
	}
	return a.failed.Sprint(name)
}

// filterLines copies r to the output, replacing mangled names in every
// line. With more than one job, lines are demangled in batches and written
// back in input order.
func (a *app) filterLines(ctx context.Context, r io.Reader, opts []demangle.Option) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	w := bufio.NewWriter(a.output)
	defer w.Flush()

	if a.cfg.Jobs <= 1 {
		for sc.Scan() {
			fmt.Fprintln(w, demangle.DemangleText(sc.Text(), opts...))
			// keep interactive pipes responsive
			if err := w.Flush(); err != nil {
				return err
			}
		}
		return sc.Err()
	}

	batch := make([]string, 0, a.cfg.Jobs*linesPerJob)
	flush := func() error {
		out, err := demangleBatch(ctx, batch, a.cfg.Jobs, opts)
		if err != nil {
			return err
		}
		for _, line := range out {
			fmt.Fprintln(w, line)
		}
		batch = batch[:0]
		return w.Flush()
	}
	for sc.Scan() {
		batch = append(batch, sc.Text())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return flush()
	}
	return nil
}

func demangleBatch(ctx context.Context, lines []string, jobs int, opts []demangle.Option) ([]string, error) {
	out := make([]string, len(lines))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = demangle.DemangleText(line, opts...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
