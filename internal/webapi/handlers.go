package webapi

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lotreel/internal/catalog"
	"lotreel/internal/pipeline"
	"lotreel/internal/services"
	"lotreel/internal/textutil"
)

const apiVersion = "0.1.0"

func (s *Server) createListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, services.Wrap(services.ErrValidation, "", "create listing", "invalid request body", err))
		return
	}
	req.DealerID = strings.TrimSpace(req.DealerID)
	req.StockNumber = strings.TrimSpace(req.StockNumber)
	if req.DealerID == "" || req.StockNumber == "" {
		s.writeError(c, services.Wrap(services.ErrValidation, "", "create listing",
			"dealer_id and stock_number are required", nil))
		return
	}

	photoURLs := "[]"
	if len(req.PhotoURLs) > 0 {
		encoded, err := json.Marshal(req.PhotoURLs)
		if err != nil {
			s.writeError(c, services.Wrap(services.ErrValidation, "", "create listing", "invalid photo_urls", err))
			return
		}
		photoURLs = string(encoded)
	}

	listing, err := s.store.CreateListing(c.Request.Context(), &catalog.Listing{
		DealerID:    req.DealerID,
		StockNumber: req.StockNumber,
		VIN:         strings.TrimSpace(req.VIN),
		Year:        req.Year,
		Make:        req.Make,
		Model:       req.Model,
		Price:       req.Price,
		Condition:   req.Condition,
		Color:       req.Color,
		Odometer:    req.Odometer,
		Engine:      req.Engine,
		Description: req.Description,
		ListingURL:  req.ListingURL,
		PhotoURLs:   photoURLs,
		Status:      pipeline.StatusPending,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toListingResponse(listing))
}

func (s *Server) listListings(c *gin.Context) {
	var statuses []pipeline.Status
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, value := range strings.Split(raw, ",") {
			status, ok := pipeline.ParseStatus(value)
			if !ok {
				s.writeError(c, services.Wrap(services.ErrValidation, "", "list listings",
					"unknown status "+strconv.Quote(value), nil))
				return
			}
			statuses = append(statuses, status)
		}
	}

	listings, err := s.store.ListListings(c.Request.Context(), statuses...)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]listingResponse, 0, len(listings))
	for _, listing := range listings {
		out = append(out, toListingResponse(listing))
	}
	c.JSON(http.StatusOK, gin.H{"listings": out})
}

func (s *Server) getListing(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	listing, err := s.store.GetListing(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(listing))
}

func (s *Server) dispatchStage(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	stageType, ok := s.stageParam(c, "dispatch")
	if !ok {
		return
	}

	job, err := s.coord.Dispatch(c.Request.Context(), id, stageType)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toJobResponse(job))
}

func (s *Server) regenerateStage(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	stageType, ok := s.stageParam(c, "regenerate")
	if !ok {
		return
	}

	job, err := s.regen.Regenerate(c.Request.Context(), id, stageType)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toJobResponse(job))
}

// serveVideo streams the listing's current video file. Range requests are
// honored bit-exactly through http.ServeContent.
func (s *Server) serveVideo(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	listing, err := s.store.GetListing(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	video, err := s.store.CurrentVideoForListing(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if video == nil {
		s.writeError(c, services.Wrap(services.ErrNotFound, "", "serve video",
			"listing has no video", nil))
		return
	}

	file, err := os.Open(video.Path)
	if err != nil {
		s.writeError(c, services.Wrap(services.ErrNotFound, "", "serve video",
			"video file missing", err))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(c, services.Wrap(services.ErrNotFound, "", "serve video",
			"video file missing", err))
		return
	}

	name := textutil.SanitizeFileName(listing.DealerID + "-" + listing.StockNumber + ".mp4")
	c.Header("Content-Type", "video/mp4")
	c.Header("Content-Disposition", `inline; filename="`+name+`"`)
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), file)
}

func (s *Server) listJobs(c *gin.Context) {
	var listingID int64
	if raw := strings.TrimSpace(c.Query("listing_id")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(c, services.Wrap(services.ErrValidation, "", "list jobs",
				"invalid listing_id", err))
			return
		}
		listingID = parsed
	}

	jobs, err := s.store.ListJobs(c.Request.Context(), listingID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, toJobResponse(job))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

func (s *Server) getJob(c *gin.Context) {
	job, err := s.store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toJobResponse(job))
}

func (s *Server) status(c *gin.Context) {
	active, err := s.store.CountActiveJobs(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	health := s.coord.Health(c.Request.Context())
	executors := make([]executorHealthResponse, 0, len(health))
	for _, h := range health {
		executors = append(executors, executorHealthResponse{
			Name:   h.Name,
			Ready:  h.Ready,
			Detail: h.Detail,
		})
	}
	c.JSON(http.StatusOK, statusResponse{
		Version:    apiVersion,
		ActiveJobs: active,
		Executors:  executors,
	})
}

func (s *Server) listingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(c, services.Wrap(services.ErrValidation, "", "parse listing id",
			"listing id must be a positive integer", nil))
		return 0, false
	}
	return id, true
}

func (s *Server) stageParam(c *gin.Context, operation string) (pipeline.StageType, bool) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, services.Wrap(services.ErrValidation, "", operation, "invalid request body", err))
		return "", false
	}
	stageType, ok := pipeline.ParseStage(req.Stage)
	if !ok {
		s.writeError(c, services.Wrap(services.ErrValidation, "", operation,
			"unknown stage "+strconv.Quote(req.Stage), nil))
		return "", false
	}
	return stageType, true
}

// writeError maps the error taxonomy onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := services.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "conflict":
		status = http.StatusConflict
	case "invalid_transition":
		status = http.StatusUnprocessableEntity
	case "validation", "out_of_range":
		status = http.StatusBadRequest
	case "not_found":
		status = http.StatusNotFound
	case "timeout", "external", "transient":
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}
