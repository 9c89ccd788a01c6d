package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/msgsplit/internal/doctree"
	"github.com/dgallion1/msgsplit/internal/fragmenter"
	"github.com/dgallion1/msgsplit/internal/parser"
	"github.com/dgallion1/msgsplit/internal/pipeline"
)

// splitParams are per-request overrides of the server's fragmenter defaults.
type splitParams struct {
	MaxLen    *int     `json:"max_len,omitempty"`
	BlockTags []string `json:"block_tags,omitempty"`
	MaxDepth  *int     `json:"max_depth,omitempty"`
	Strict    *bool    `json:"strict,omitempty"`
}

type splitRequest struct {
	HTML string `json:"html"`
	splitParams
}

type splitResponse struct {
	Fragments  []doctree.Fragment `json:"fragments"`
	Count      int                `json:"count"`
	Overflowed []int              `json:"overflowed"`
	MaxLen     int                `json:"max_len"`
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := s.options(req.splitParams)
	if err != nil {
		writeSplitError(w, err)
		return
	}

	tree, err := parser.ParseHTML(strings.NewReader(req.HTML))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.split(w, tree, opts)
}

func (s *Server) handleSplitFile(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	params, err := formParams(r)
	if err != nil {
		writeSplitError(w, err)
		return
	}
	opts, err := s.options(params)
	if err != nil {
		writeSplitError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := s.parserFor(filename)
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("parse failed", "filename", filename, "error", err)
		jsonError(w, "parse: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.split(w, tree, opts)
}

func (s *Server) split(w http.ResponseWriter, tree *doctree.Node, opts fragmenter.Options) {
	seq, err := pipeline.SplitTree(tree, opts, s.stats)
	if err != nil {
		writeSplitError(w, err)
		return
	}
	overflowed := seq.Overflowed()
	if len(overflowed) > 0 {
		s.log.Warn("fragments exceed max length", "fragments", overflowed, "max_len", opts.MaxLen)
	}
	if overflowed == nil {
		overflowed = []int{}
	}
	fragments := []doctree.Fragment(seq)
	if fragments == nil {
		fragments = []doctree.Fragment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(splitResponse{
		Fragments:  fragments,
		Count:      len(fragments),
		Overflowed: overflowed,
		MaxLen:     opts.MaxLen,
	})
}

// options applies request overrides to the server defaults and validates the result.
func (s *Server) options(p splitParams) (fragmenter.Options, error) {
	opts := s.defaults
	if p.MaxLen != nil {
		opts.MaxLen = *p.MaxLen
	}
	if len(p.BlockTags) > 0 {
		blocks, err := fragmenter.ParseBlockSet(strings.Join(p.BlockTags, ","))
		if err != nil {
			return fragmenter.Options{}, err
		}
		opts.Blocks = blocks
	}
	if p.MaxDepth != nil {
		opts = opts.WithMaxDepth(*p.MaxDepth)
	}
	if p.Strict != nil {
		opts.Strict = *p.Strict
	}
	if err := opts.Validate(); err != nil {
		return fragmenter.Options{}, err
	}
	return opts, nil
}

// formParams reads split overrides from multipart form fields.
func formParams(r *http.Request) (splitParams, error) {
	var p splitParams
	if v := r.FormValue("max_len"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, &fragmenter.ConfigError{Field: "max_len", Reason: fmt.Sprintf("not a number: %q", v)}
		}
		p.MaxLen = &n
	}
	if v := r.FormValue("block_tags"); v != "" {
		p.BlockTags = strings.Split(v, ",")
	}
	if v := r.FormValue("max_depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, &fragmenter.ConfigError{Field: "max_depth", Reason: fmt.Sprintf("not a number: %q", v)}
		}
		p.MaxDepth = &n
	}
	if v := r.FormValue("strict"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, &fragmenter.ConfigError{Field: "strict", Reason: fmt.Sprintf("not a boolean: %q", v)}
		}
		p.Strict = &b
	}
	return p, nil
}

func (s *Server) parserFor(filename string) (parser.Parser, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = s.cfg.PDFFallbackPdftotext
	}
	return p, nil
}

func writeSplitError(w http.ResponseWriter, err error) {
	var cfgErr *fragmenter.ConfigError
	var ovErr *fragmenter.OverflowError
	switch {
	case errors.As(err, &cfgErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": err.Error(), "field": cfgErr.Field})
	case errors.As(err, &ovErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error":    err.Error(),
			"fragment": ovErr.Fragment,
			"length":   ovErr.Length,
			"max_len":  ovErr.MaxLen,
		})
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
