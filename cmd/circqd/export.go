package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/DeterminateSystems/circq/internal/monitor"
)

type exportedTask struct {
	Task   string          `json:"task"`
	State  string          `json:"state"`
	Events []monitor.Event `json:"events"`
}

type exportLine struct {
	Task string `json:"task"`
	monitor.Event
}

type exportOptions struct {
	server string
	task   string
	order  string
	limit  int
	format string
}

func newExportCommand() *cobra.Command {
	opts := exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write task histories from a running server, one event per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "json" && opts.format != "text" {
				return errors.Errorf("unknown format %q", opts.format)
			}
			tasks, err := fetchHistory(cmd, opts)
			if err != nil {
				return err
			}
			return writeExport(cmd.OutOrStdout(), tasks, opts.format)
		},
	}
	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:8585", "base URL of the circqd server")
	cmd.Flags().StringVar(&opts.task, "task", "", "only export this task")
	cmd.Flags().StringVar(&opts.order, "order", "asc", "event order for a single task: asc or desc")
	cmd.Flags().IntVar(&opts.limit, "limit", -1, "export at most this many recent events of a single task")
	cmd.Flags().StringVar(&opts.format, "format", "json", "output format: json or text")
	return cmd
}

func fetchHistory(cmd *cobra.Command, opts exportOptions) ([]exportedTask, error) {
	u, err := url.Parse(strings.TrimSuffix(opts.server, "/") + "/history")
	if err != nil {
		return nil, errors.Wrap(err, "parsing server URL")
	}
	if opts.task != "" {
		q := u.Query()
		q.Set("task", opts.task)
		q.Set("order", opts.order)
		if opts.limit >= 0 {
			q.Set("limit", strconv.Itoa(opts.limit))
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching history")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("fetching history: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	if opts.task != "" {
		var task exportedTask
		if err := dec.Decode(&task); err != nil {
			return nil, errors.Wrap(err, "decoding history")
		}
		return []exportedTask{task}, nil
	}
	var tasks []exportedTask
	if err := dec.Decode(&tasks); err != nil {
		return nil, errors.Wrap(err, "decoding history")
	}
	return tasks, nil
}

func writeExport(w io.Writer, tasks []exportedTask, format string) error {
	enc := json.NewEncoder(w)
	for _, task := range tasks {
		for _, ev := range task.Events {
			var err error
			switch format {
			case "text":
				_, err = fmt.Fprintf(w, "%s\t%s\t%s\n", ev.Timestamp, task.Task, ev.Event)
			default:
				err = enc.Encode(exportLine{Task: task.Task, Event: ev})
			}
			if err != nil {
				return errors.Wrap(err, "writing export")
			}
		}
	}
	return nil
}
