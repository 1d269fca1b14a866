package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/askpdf/askpdf/internal/backend"
	"github.com/askpdf/askpdf/internal/tui"
	"github.com/askpdf/askpdf/internal/viewstate"
)

func main() {
	apiURL := flag.String("api-url", os.Getenv("ASKPDF_API_BASE_URL"), "AskPDF API base URL")
	token := flag.String("token", os.Getenv("ASKPDF_ACCESS_TOKEN"), "API access token")
	stateDir := flag.String("state-dir", "", "directory for per-document view state (default: platform state dir)")
	logPath := flag.String("log", os.Getenv("ASKPDF_LOG"), "append debug logs to this file")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	// The terminal belongs to the TUI; logs go to a file or nowhere.
	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "askpdf")
		if err != nil {
			fmt.Println("open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	localPDF := flag.Arg(0)
	if localPDF != "" {
		abs, err := filepath.Abs(localPDF)
		if err != nil {
			fmt.Println("resolve pdf path:", err)
			os.Exit(1)
		}
		localPDF = abs
	}

	var client *backend.Client
	var loader *backend.Loader
	if localPDF == "" {
		if *apiURL == "" || *token == "" {
			fmt.Println("askpdf needs -api-url and -token (or ASKPDF_API_BASE_URL and ASKPDF_ACCESS_TOKEN),")
			fmt.Println("or a local PDF path as the first argument.")
			os.Exit(2)
		}
		client = backend.NewClient(*apiURL, *token, nil)
		loader = backend.NewLoader(client)
		if cache, err := backend.NewDocumentCache(nil); err == nil {
			loader.UseCache(cache)
		} else {
			log.Printf("[main] document cache disabled: %v", err)
		}
	}

	dir := *stateDir
	if dir == "" {
		var err error
		if dir, err = viewstate.DefaultDir(); err != nil {
			log.Printf("[main] no state dir, view state disabled: %v", err)
		}
	}
	var states *viewstate.Store
	if dir != "" {
		var err error
		if states, err = viewstate.NewStore(dir); err != nil {
			log.Printf("[main] view state disabled: %v", err)
		}
	}

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Loader:   loader,
			Client:   client,
			States:   states,
			LocalPDF: localPDF,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
