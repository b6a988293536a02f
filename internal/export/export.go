// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export turns the open project into a downloadable artifact by
// handing it to the export service, and saves artifacts to disk.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/doc-studio/internal/apperr"
	"github.com/pdiddy/doc-studio/internal/session"
	"github.com/pdiddy/doc-studio/pkg/logger"
	"github.com/pdiddy/doc-studio/pkg/types"
)

// zipMagic starts every OOXML (docx/pptx) file.
var zipMagic = []byte("PK\x03\x04")

// Backend is the export service.
type Backend interface {
	Export(ctx context.Context, sess *session.Session, projectID int64) (*types.Artifact, error)
}

// Gateway requests artifacts from a Backend. It keeps no state; every
// call produces a fresh artifact.
type Gateway struct {
	backend Backend
}

// New returns a gateway using backend.
func New(backend Backend) *Gateway {
	return &Gateway{backend: backend}
}

// Export requests the artifact for project. A project without generated
// content is rejected without contacting the service. The returned
// artifact is named after the project's title and type.
func (g *Gateway) Export(ctx context.Context, sess *session.Session, project *types.Project) (*types.Artifact, error) {
	if project == nil {
		return nil, apperr.New(apperr.KindExport, "no project is open")
	}
	if !project.HasContent() {
		return nil, apperr.Newf(apperr.KindExport, "project %q has no generated content yet", project.Title)
	}
	if !project.Type.Valid() {
		return nil, apperr.Newf(apperr.KindExport, "project type %q cannot be exported", project.Type)
	}
	if err := session.Check(sess); err != nil {
		return nil, err
	}

	ctx = logger.WithContext(ctx, logger.ProjectIDKey, project.ID)
	art, err := g.backend.Export(ctx, sess, project.ID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			return nil, err
		}
		return nil, apperr.Wrap(err, apperr.KindExport, fmt.Sprintf("exporting project %d", project.ID))
	}
	if art == nil || len(art.Data) == 0 {
		return nil, apperr.New(apperr.KindExport, "export service returned an empty artifact")
	}
	if !bytes.HasPrefix(art.Data, zipMagic) {
		return nil, apperr.Newf(apperr.KindExport, "export service returned data that is not a %s file", project.Type.Extension())
	}

	out := &types.Artifact{
		Filename:  types.ArtifactFilename(project.Title, project.Type),
		MediaType: project.Type.MediaType(),
		Data:      art.Data,
	}
	logger.Info(ctx, "exported project", "filename", out.Filename, "bytes", len(out.Data))
	return out, nil
}

// Save writes art into dir and returns its path. The data goes to a temp
// file that is renamed into place, so a failed write leaves nothing behind.
func Save(dir string, art *types.Artifact) (string, error) {
	if art == nil || art.Filename == "" {
		return "", apperr.New(apperr.KindExport, "nothing to save")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(err, apperr.KindExport, "creating output directory")
	}

	dest := filepath.Join(dir, filepath.Base(art.Filename))
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", apperr.Wrap(err, apperr.KindExport, "creating temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(art.Data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", apperr.Wrap(err, apperr.KindExport, "writing artifact")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", apperr.Wrap(err, apperr.KindExport, "closing artifact")
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", apperr.Wrap(err, apperr.KindExport, "saving artifact")
	}
	return dest, nil
}
