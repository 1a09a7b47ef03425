package webapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lotreel/internal/catalog"
	"lotreel/internal/services"
)

func (s *Server) getScript(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	script, err := s.store.GetScriptByListing(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeScript(c, http.StatusOK, script)
}

func (s *Server) updateScript(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	var req scriptUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, services.Wrap(services.ErrValidation, "", "update script", "invalid request body", err))
		return
	}
	script, err := s.gate.UpdateScriptContent(c.Request.Context(), id, req.Content, req.EditedBy)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeScript(c, http.StatusOK, script)
}

func (s *Server) approveScript(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	req := s.reviewBody(c)
	if req == nil {
		return
	}
	script, err := s.gate.ApproveScript(c.Request.Context(), id, req.Reviewer)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeScript(c, http.StatusOK, script)
}

func (s *Server) rejectScript(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	req := s.reviewBody(c)
	if req == nil {
		return
	}
	script, err := s.gate.RejectScript(c.Request.Context(), id, req.Reviewer, req.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeScript(c, http.StatusOK, script)
}

func (s *Server) revertScript(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	var req scriptRevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, services.Wrap(services.ErrValidation, "", "revert script", "invalid request body", err))
		return
	}
	script, err := s.gate.RevertScriptVersion(c.Request.Context(), id, req.Version, req.EditedBy)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.writeScript(c, http.StatusOK, script)
}

func (s *Server) approveVideo(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	req := s.reviewBody(c)
	if req == nil {
		return
	}
	video, err := s.gate.ApproveVideo(c.Request.Context(), id, req.Reviewer)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideoResponse(video))
}

func (s *Server) rejectVideo(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	req := s.reviewBody(c)
	if req == nil {
		return
	}
	video, err := s.gate.RejectVideo(c.Request.Context(), id, req.Reviewer, req.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideoResponse(video))
}

func (s *Server) publishVideo(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	req := s.reviewBody(c)
	if req == nil {
		return
	}
	video, err := s.gate.PublishVideo(c.Request.Context(), id, req.Reviewer)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideoResponse(video))
}

// reviewBody decodes the reviewer/reason payload. An empty body is allowed;
// the gate enforces which fields each operation requires.
func (s *Server) reviewBody(c *gin.Context) *reviewRequest {
	req := &reviewRequest{}
	if c.Request.ContentLength == 0 {
		return req
	}
	if err := c.ShouldBindJSON(req); err != nil {
		s.writeError(c, services.Wrap(services.ErrValidation, "", "review", "invalid request body", err))
		return nil
	}
	return req
}

func (s *Server) writeScript(c *gin.Context, status int, script *catalog.Script) {
	versions, err := s.store.CountScriptVersions(c.Request.Context(), script.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(status, toScriptResponse(script, versions))
}
