package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AcceptableTrouble/button-buddy/internal/browser"
	"github.com/AcceptableTrouble/button-buddy/internal/resolver"
	"github.com/AcceptableTrouble/button-buddy/models"
)

type resolveOutput struct {
	resolver.Response
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

func resolveCMD(load configLoader) *cobra.Command {
	var (
		goal           string
		pageURL        string
		candidatesPath string
		origin         string
		noHints        bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a goal against a live page (--url) or a candidates JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(goal) == "" {
				return errors.New("--goal is required")
			}
			if (pageURL == "") == (candidatesPath == "") {
				return errors.New("exactly one of --url or --candidates is required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			req := resolver.Request{Goal: models.Goal{Text: goal}, Origin: origin}
			out := resolveOutput{URL: pageURL}
			if pageURL != "" {
				page, err := browser.New(cfg.Browser).Open(cmd.Context(), pageURL)
				if err != nil {
					return err
				}
				defer page.Close()
				req.Candidates = page.Candidates
				req.Page = page
				out.Title = page.Title
				if req.Origin == "" {
					if u, err := url.Parse(pageURL); err == nil {
						req.Origin = u.Scheme + "://" + u.Host
					}
				}
			} else {
				req.Candidates, err = readCandidates(candidatesPath, cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			if noHints {
				req.Origin = ""
			}

			out.Response, err = a.resolver.Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "what the user is trying to do")
	cmd.Flags().StringVar(&pageURL, "url", "", "page to observe with headless Chrome")
	cmd.Flags().StringVar(&candidatesPath, "candidates", "", "candidates JSON file, - for stdin")
	cmd.Flags().StringVar(&origin, "origin", "", "site origin for hints (defaults to the --url origin)")
	cmd.Flags().BoolVar(&noHints, "no-hints", false, "skip site hint discovery")
	return cmd
}

func readCandidates(path string, stdin io.Reader) ([]models.Candidate, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var cands []models.Candidate
	if err := json.NewDecoder(r).Decode(&cands); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return cands, nil
}
