// Command inkwell is the Inkwell CLI client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"inkwell/internal/version"
)

const defaultServer = "http://localhost:8787"

func main() {
	fallback := defaultServer
	if env := os.Getenv("INKWELL_SERVER"); env != "" {
		fallback = env
	}
	serverURL := flag.String("server", fallback, "inkwell server URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "projects":
		err = cli.cmdProjects(rest)
	case "project":
		err = cli.cmdProject(rest)
	case "docs":
		err = cli.cmdDocs(rest)
	case "tasks":
		err = cli.cmdTasks(rest)
	case "task":
		err = cli.cmdTask(rest)
	case "serve":
		fmt.Fprintln(os.Stderr, "use inkwelld to run the server")
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `inkwell — Inkwell CLI

Usage:
  inkwell [flags] <command> [args]

Flags:
  --server <url>  server URL (default: http://localhost:8787, or $INKWELL_SERVER)

Commands:
  version                          print version
  status                           show server status
  projects                         list projects
  project create <name>            create a project
  docs <projectID>                 list a project's docs
  tasks <projectID>                list a project's tasks
  task create <projectID> <type> <docID> <prompt...>
                                   create a task
  task execute <projectID> <taskID>
                                   run a task, streaming output to stdout
  task apply <projectID> <taskID>  copy a completed result into its doc
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("inkwell %s (commit %s, built %s)\n",
		version.Version, version.Commit, version.BuildDate)
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// envelope mirrors the server's response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// get performs a GET and decodes the envelope's data into v.
func (c *Client) get(path string, v any) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	return decodeEnvelope(resp, v)
}

// post performs a POST and decodes the envelope's data into v (may be nil).
func (c *Client) post(path string, body io.Reader, v any) error {
	resp, err := c.HTTPClient.Post(c.BaseURL+path, "application/json", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	return decodeEnvelope(resp, v)
}

func decodeEnvelope(resp *http.Response, v any) error {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("server returned %d: %v", resp.StatusCode, err)
	}
	if !env.Success {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, env.Message)
	}
	if v != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, v)
	}
	return nil
}

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]any
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", strVal(result["status"]))
	fmt.Printf("version: %s\n", strVal(result["version"]))
	return nil
}

// --- projects ---

func (c *Client) cmdProjects(_ []string) error {
	var projects []map[string]any
	if err := c.get("/api/projects", &projects); err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("no projects")
		return nil
	}
	fmt.Printf("%-36s %-30s\n", "ID", "NAME")
	fmt.Println(strings.Repeat("-", 67))
	for _, p := range projects {
		fmt.Printf("%-36s %-30s\n", strVal(p["id"]), truncate(strVal(p["name"]), 29))
	}
	return nil
}

func (c *Client) cmdProject(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: inkwell project create <name>")
		os.Exit(1)
	}
	switch args[0] {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: inkwell project create <name>")
		}
		name := strings.Join(args[1:], " ")
		body := fmt.Sprintf(`{"name":%q}`, name)
		var result map[string]any
		if err := c.post("/api/projects", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created project %s\n", strVal(result["id"]))
	default:
		return fmt.Errorf("unknown project subcommand: %s", args[0])
	}
	return nil
}

// --- docs ---

func (c *Client) cmdDocs(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: inkwell docs <projectID>")
		os.Exit(1)
	}
	var docs []map[string]any
	if err := c.get("/api/projects/"+args[0]+"/docs", &docs); err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("no docs")
		return nil
	}
	fmt.Printf("%-36s %-30s %-12s\n", "ID", "TITLE", "TYPE")
	fmt.Println(strings.Repeat("-", 82))
	for _, d := range docs {
		fmt.Printf("%-36s %-30s %-12s\n",
			strVal(d["id"]),
			truncate(strVal(d["title"]), 29),
			strVal(d["type"]),
		)
	}
	return nil
}

// --- tasks ---

func (c *Client) cmdTasks(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: inkwell tasks <projectID>")
		os.Exit(1)
	}
	var tasks []map[string]any
	if err := c.get("/api/projects/"+args[0]+"/tasks", &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-36s %-12s %-12s\n", "ID", "TYPE", "STATUS")
	fmt.Println(strings.Repeat("-", 62))
	for _, t := range tasks {
		fmt.Printf("%-36s %-12s %-12s\n",
			strVal(t["id"]),
			strVal(t["type"]),
			strVal(t["status"]),
		)
	}
	return nil
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: inkwell task <create|execute|apply> ...")
		os.Exit(1)
	}
	sub := args[0]
	rest := args[1:]
	switch sub {
	case "create":
		if len(rest) < 3 {
			return fmt.Errorf("usage: inkwell task create <projectID> <type> <docID> [prompt...]")
		}
		projectID, taskType, docID := rest[0], rest[1], rest[2]
		prompt := strings.Join(rest[3:], " ")
		body := fmt.Sprintf(`{"type":%q,"doc_id":%q,"prompt":%q}`, taskType, docID, prompt)
		var result map[string]any
		if err := c.post("/api/projects/"+projectID+"/tasks", strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created task %s\n", strVal(result["id"]))
	case "execute":
		if len(rest) < 2 {
			return fmt.Errorf("usage: inkwell task execute <projectID> <taskID>")
		}
		return c.execute(rest[0], rest[1])
	case "apply":
		if len(rest) < 2 {
			return fmt.Errorf("usage: inkwell task apply <projectID> <taskID>")
		}
		var doc map[string]any
		if err := c.post("/api/projects/"+rest[0]+"/tasks/"+rest[1]+"/apply", nil, &doc); err != nil {
			return err
		}
		fmt.Printf("applied result to doc %s\n", strVal(doc["id"]))
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

// execute streams the generated text to stdout as it arrives. It uses an
// untimed client: generation legitimately runs longer than API calls.
func (c *Client) execute(projectID, taskID string) error {
	streamClient := &http.Client{}
	resp, err := streamClient.Post(
		c.BaseURL+"/api/projects/"+projectID+"/tasks/"+taskID+"/execute",
		"application/json", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return decodeEnvelope(resp, nil)
	}
	if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
		return fmt.Errorf("stream interrupted: %w", err)
	}
	fmt.Println()
	return nil
}

// --- helpers ---

func strVal(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
