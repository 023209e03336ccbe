package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kailas-cloud/agentmart/internal/domain/listing"
	"github.com/kailas-cloud/agentmart/internal/session"
	"github.com/kailas-cloud/agentmart/pkg/api"
)

const help = `Type to search. Commands:
  :more             load the next page
  :set KEY VALUE    set a filter (category, tags, language, framework, featured, sort, limit)
  :unset KEY        clear a filter
  :facets           show facet counts
  :help             show this help
  :quit             exit`

type facetSource interface {
	Facets(ctx context.Context) (*api.FacetsResponse, error)
}

// repl drives a session from line input and prints settled snapshots.
type repl struct {
	sess   *session.Session
	facets facetSource

	mu  sync.Mutex
	out io.Writer
}

func newREPL(sess *session.Session, facets facetSource, out io.Writer) *repl {
	r := &repl{sess: sess, facets: facets, out: out}
	sess.OnChange(r.render)
	return r
}

// run reads lines until EOF, :quit or ctx ends.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			if r.handle(ctx, line) {
				return nil
			}
		}
	}
}

// handle applies one line of input. It reports whether to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ":") {
		r.sess.OnInputChange(line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		r.println(help)
	case ":more":
		if !r.sess.LoadMore() {
			r.println("no more results")
		}
	case ":set":
		if len(fields) < 3 {
			r.println("usage: :set KEY VALUE")
			return false
		}
		// Invalid values surface through the snapshot error.
		_ = r.sess.UpdateFilter(fields[1], strings.Join(fields[2:], " "))
	case ":unset":
		if len(fields) != 2 {
			r.println("usage: :unset KEY")
			return false
		}
		_ = r.sess.UpdateFilter(fields[1], "")
	case ":facets":
		r.printFacets(ctx)
	default:
		r.println("unknown command " + fields[0] + " (try :help)")
	}
	return false
}

func (r *repl) render(s session.Snapshot) {
	switch {
	case s.Error != "":
		r.println("error: " + s.Error)
	case s.State == session.Settled:
		r.println(formatResults(s))
	}
}

func formatResults(s session.Snapshot) string {
	var b strings.Builder
	if s.Warning != "" {
		fmt.Fprintf(&b, "! %s\n", s.Warning)
	} else if s.Degraded {
		b.WriteString("! showing reduced results\n")
	}
	if len(s.Results) == 0 {
		b.WriteString("no results")
		return b.String()
	}
	for i := range s.Results {
		fmt.Fprintf(&b, "%3d. %s\n", i+1, formatListing(&s.Results[i]))
	}
	fmt.Fprintf(&b, "%d shown", len(s.Results))
	if s.HasMore {
		b.WriteString(", :more for the next page")
	}
	return b.String()
}

func formatListing(l *listing.Summary) string {
	parts := []string{l.Title}
	if l.Author != nil {
		parts = append(parts, "by "+l.Author.Username)
	}
	if l.Language != "" {
		parts = append(parts, "["+l.Language+"]")
	}
	if l.Rating.Count > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f (%d)", l.Rating.Average, l.Rating.Count))
	}
	return strings.Join(parts, " ")
}

func (r *repl) printFacets(ctx context.Context) {
	resp, err := r.facets.Facets(ctx)
	if err != nil {
		r.println("error: " + err.Error())
		return
	}
	var b strings.Builder
	dims := []struct {
		name   string
		counts []api.FacetCount
	}{
		{"categories", resp.Categories},
		{"languages", resp.Languages},
		{"frameworks", resp.Frameworks},
		{"tags", resp.Tags},
	}
	for _, d := range dims {
		vals := make([]string, len(d.counts))
		for i, c := range d.counts {
			vals[i] = fmt.Sprintf("%s(%d)", c.Name, c.Count)
		}
		fmt.Fprintf(&b, "%-11s %s\n", d.name+":", strings.Join(vals, " "))
	}
	if len(resp.Fallback) > 0 {
		fmt.Fprintf(&b, "! defaults shown for %s", strings.Join(resp.Fallback, ", "))
	}
	r.println(strings.TrimRight(b.String(), "\n"))
}

func (r *repl) println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.out, s)
}
