// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/metrics"
	"github.com/pdiddy/doc-studio/pkg/logger"
	"github.com/pdiddy/doc-studio/pkg/types"
)

type errorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError responds with the status of err's kind. Internal failures
// are logged and reported without detail.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	msg := "internal server error"
	var ae *apperr.Error
	if kind != apperr.KindInternal && errors.As(err, &ae) {
		msg = ae.Message
		if ae.Err != nil && kind != apperr.KindValidation {
			msg += ": " + ae.Err.Error()
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err, "kind", kind)
	}
	c.AbortWithStatusJSON(status, errorResponse{
		Code:      status,
		Message:   msg,
		RequestID: c.GetString(requestIDKey),
	})
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.KindNotFound, "%q is not a valid id", c.Param("id"))
	}
	return id, nil
}

func (s *Server) createProject(c *gin.Context) {
	var draft types.ProjectDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		writeError(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}
	p, err := s.repo.CreateProject(c.Request.Context(), c.GetInt64(userIDKey), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, p.ID)
	logger.Info(ctx, "project created", "type", p.Type, "sections", len(p.Sections))
	c.JSON(http.StatusCreated, p)
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.repo.ListProjects(c.Request.Context(), c.GetInt64(userIDKey))
	if err != nil {
		writeError(c, err)
		return
	}
	if projects == nil {
		projects = []types.Project{}
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) getProject(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := s.repo.GetProject(c.Request.Context(), c.GetInt64(userIDKey), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type generateRequest struct {
	ProjectID int64 `json:"project_id" binding:"required"`
}

type generateResponse struct {
	Message string `json:"message"`
}

// generate writes every section of a project. All texts are produced
// before anything is stored, so a failure leaves the project unchanged.
func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, req.ProjectID)
	userID := c.GetInt64(userIDKey)
	start := time.Now()

	n, err := s.generateAll(c, userID, req.ProjectID)
	metrics.GenerationTotal.WithLabelValues("generate", metrics.Outcome(err)).Inc()
	metrics.GenerationDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.GeneratedSections.Add(float64(n))
	logger.Info(ctx, "project generated", "sections", n, "duration", time.Since(start))
	c.JSON(http.StatusOK, generateResponse{Message: fmt.Sprintf("content generated for %d sections", n)})
}

func (s *Server) generateAll(c *gin.Context, userID, projectID int64) (int, error) {
	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, projectID)
	p, err := s.repo.GetProject(ctx, userID, projectID)
	if err != nil {
		return 0, err
	}

	contents := make(map[int64]string, len(p.Sections))
	for _, sec := range p.Sections {
		sctx := logger.WithContext(ctx, logger.SectionIDKey, sec.ID)
		logger.Debug(sctx, "generating section", "order", sec.Order, "title", sec.Title)
		text, err := s.writer.GenerateSection(sctx, p, sec)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, apperr.Wrap(err, apperr.KindGeneration,
				fmt.Sprintf("generating %s %d", strings.ToLower(p.Type.UnitLabel()), sec.Order))
		}
		contents[sec.ID] = text
	}

	if err := s.repo.SetContents(ctx, userID, projectID, contents); err != nil {
		return 0, err
	}
	return len(contents), nil
}

type refineRequest struct {
	SectionID   int64  `json:"section_id" binding:"required"`
	Instruction string `json:"instruction"`
}

type refineResponse struct {
	RefinedContent string `json:"refined_content"`
}

func (s *Server) refine(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		writeError(c, apperr.New(apperr.KindValidation, "instruction is required"))
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.SectionIDKey, req.SectionID)
	userID := c.GetInt64(userIDKey)
	start := time.Now()

	refined, err := s.refineSection(c, userID, req.SectionID, instruction)
	metrics.GenerationTotal.WithLabelValues("refine", metrics.Outcome(err)).Inc()
	metrics.GenerationDuration.WithLabelValues("refine").Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(c, err)
		return
	}
	logger.Info(ctx, "section refined", "duration", time.Since(start))
	c.JSON(http.StatusOK, refineResponse{RefinedContent: refined})
}

func (s *Server) refineSection(c *gin.Context, userID, sectionID int64, instruction string) (string, error) {
	ctx := logger.WithContext(c.Request.Context(), logger.SectionIDKey, sectionID)
	_, sec, err := s.repo.SectionWithProject(ctx, userID, sectionID)
	if err != nil {
		return "", err
	}

	refined, err := s.writer.Refine(ctx, sec.Content, instruction)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperr.Wrap(err, apperr.KindGeneration, fmt.Sprintf("refining section %d", sectionID))
	}

	entry := types.RefinementEntry{
		Original:    sec.Content,
		Instruction: instruction,
		Refined:     refined,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.repo.ApplyRefinement(ctx, userID, sectionID, entry); err != nil {
		return "", err
	}
	return refined, nil
}

func (s *Server) export(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := logger.WithContext(c.Request.Context(), logger.ProjectIDKey, id)

	p, err := s.repo.GetProject(ctx, c.GetInt64(userIDKey), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !p.HasContent() {
		writeError(c, apperr.Newf(apperr.KindValidation, "project %d has no generated content", id))
		return
	}

	art, err := s.renderer.Render(ctx, p)
	metrics.ExportsTotal.WithLabelValues(string(p.Type), metrics.Outcome(err)).Inc()
	if err != nil {
		writeError(c, apperr.Wrap(err, apperr.KindExport, fmt.Sprintf("rendering project %d", id)))
		return
	}
	metrics.ExportSize.WithLabelValues(string(p.Type)).Observe(float64(len(art.Data)))
	logger.Info(ctx, "project exported", "filename", art.Filename, "bytes", len(art.Data))

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	c.Data(http.StatusOK, art.MediaType, art.Data)
}
