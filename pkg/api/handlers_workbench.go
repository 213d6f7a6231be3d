package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-commgraph/pkg/ingest"
	"github.com/dd0wney/cluso-commgraph/pkg/jobs"
	"github.com/dd0wney/cluso-commgraph/pkg/logging"
	"github.com/dd0wney/cluso-commgraph/pkg/schema"
	"github.com/dd0wney/cluso-commgraph/pkg/validation"
)

// handleImport creates a listing set from the multipart fields name and
// description, then queues ingestion of the CSV in file. The response does
// not wait for ingestion.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	if mediaType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type")); mediaType != "text/csv" {
		s.respondError(w, http.StatusBadRequest, "Invalid file type. Please upload a CSV.")
		return
	}

	body, err := io.ReadAll(file)
	if err != nil {
		s.respondErr(w, r, err, "read upload", "")
		return
	}
	src, err := ingest.NewCSVSource(bytes.NewReader(body))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := schema.ListingSetCreate{Name: r.FormValue("name")}
	if d := strings.TrimSpace(r.FormValue("description")); d != "" {
		req.Description = &d
	}

	owner := caller(r)
	ls, err := s.Listings.Create(r.Context(), req, owner)
	if err != nil {
		s.respondErr(w, r, err, "create listing set", "Owner not found")
		return
	}

	log := s.logger.With(logging.ListingSetID(ls.ID), logging.Username(owner))
	if s.Archive != nil {
		if key, err := s.Archive.Archive(r.Context(), ls.ID, body); err != nil {
			log.Warn("upload archive failed", logging.Error(err))
		} else {
			log.Debug("upload archived", logging.String("key", key))
		}
	}

	job, err := s.Jobs.Submit(owner, ls.ID, func(ctx context.Context, progress ingest.ProgressFunc) (ingest.Result, error) {
		return s.Pipeline.Run(ctx, ls.ID, src, progress)
	})
	if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrPoolClosed) {
		s.respondJSON(w, http.StatusServiceUnavailable, ImportResponse{
			Message:    "Ingestion could not be queued, retry later",
			ListingSet: ls,
			Job:        job,
		})
		return
	}
	if err != nil {
		s.respondErr(w, r, err, "queue ingestion", "")
		return
	}

	s.respondJSON(w, http.StatusAccepted, ImportResponse{
		Message:    "Ingestion started",
		ListingSet: ls,
		Job:        job,
	})
}

func (s *Server) handleListListingSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.Listings.ListByOwner(r.Context(), caller(r))
	if err != nil {
		s.respondErr(w, r, err, "list listing sets", "")
		return
	}
	s.respondJSON(w, http.StatusOK, sets)
}

// handleVisualize takes a JSON array of listing-set ids. Ids the caller does
// not own contribute nothing, exactly like unknown ids.
func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := decodeJSON(w, r, &ids); err != nil {
		s.respondErr(w, r, err, "visualize", "")
		return
	}
	if err := validation.ValidateListingSetIDs(ids); err != nil {
		s.respondErr(w, r, err, "visualize", "")
		return
	}

	g, err := s.Queries.OwnedSubgraph(r.Context(), caller(r), ids)
	if err != nil {
		s.respondErr(w, r, err, "visualize", "")
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.Jobs.List(caller(r)))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.Jobs.GetForOwner(r.PathValue("id"), caller(r))
	if err != nil {
		s.respondErr(w, r, err, "get job", "Job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}
