package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/laoluafolami/spendlytics-sub001/internal/logger"
	"github.com/laoluafolami/spendlytics-sub001/internal/utils"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

const (
	passphraseHeader = "X-Backup-Passphrase"
	filenameHeader   = "X-Backup-Filename"

	// maxArtifactSize bounds uploaded artifacts.
	maxArtifactSize = 64 << 20
)

// createBackup builds an artifact from the JSON-encoded
// [models.BackupOptions] in the body and sends it as an attachment.
func (h *Handler) createBackup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var opts models.BackupOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidRequestBody, err)
		log.Err(err).Str("func", "*Handler.createBackup").Msg("error decoding backup options")
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.services.BackupService.CreateBackup(r.Context(), opts, nil)
	if err != nil {
		log.Err(err).Str("func", "*Handler.createBackup").Msg("backup failed")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}

	contentType := "application/json"
	if opts.Encrypt {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set(filenameHeader, out.Filename)
	w.Header().Set(digestHeader, utils.Checksum(out.Content))
	w.WriteHeader(http.StatusOK)

	if _, err = w.Write(out.Content); err != nil {
		log.Err(err).Str("func", "*Handler.createBackup").Msg("error writing artifact")
		return
	}
	log.Info().Str("filename", out.Filename).Int("size", out.SizeBytes).Msg("backup sent")
}

// validateBackup checks the uploaded artifact without restoring it. An
// invalid artifact is answered with 422 and the reason.
func (h *Handler) validateBackup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	content, err := readArtifact(w, r)
	if err != nil {
		log.Err(err).Str("func", "*Handler.validateBackup").Msg("error reading artifact")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}

	res := h.services.RestoreService.Validate(r.Context(), content, r.Header.Get(passphraseHeader))
	if !res.Valid {
		log.Err(res.Err).Str("func", "*Handler.validateBackup").Msg("artifact rejected")
		utils.WriteJSON(w, res, statusFromError(res.Err))
		return
	}

	utils.WriteJSON(w, res, http.StatusOK)
}

// restoreBackup validates the uploaded artifact and replays it. The
// restore targets are chosen with the remote, local, preferences and merge
// query parameters. Partial failure is reported in the result body.
func (h *Handler) restoreBackup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	opts, err := restoreOptionsFromQuery(r.URL.Query())
	if err != nil {
		log.Err(err).Str("func", "*Handler.restoreBackup").Msg("bad query")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}

	content, err := readArtifact(w, r)
	if err != nil {
		log.Err(err).Str("func", "*Handler.restoreBackup").Msg("error reading artifact")
		utils.WriteError(w, statusFromError(err), err.Error())
		return
	}

	res := h.services.RestoreService.Validate(r.Context(), content, r.Header.Get(passphraseHeader))
	if !res.Valid {
		log.Err(res.Err).Str("func", "*Handler.restoreBackup").Msg("artifact rejected")
		utils.WriteJSON(w, res, statusFromError(res.Err))
		return
	}

	result := h.services.RestoreService.Restore(r.Context(), *res.Artifact, opts, nil)
	log.Info().
		Bool("success", result.Success).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("restore finished")

	utils.WriteJSON(w, result, http.StatusOK)
}

func restoreOptionsFromQuery(q url.Values) (models.RestoreOptions, error) {
	var (
		opts models.RestoreOptions
		err  error
	)
	params := []struct {
		name string
		dst  *bool
	}{
		{"remote", &opts.RestoreRemote},
		{"local", &opts.RestoreLocalStore},
		{"preferences", &opts.RestorePreferences},
		{"merge", &opts.MergeMode},
	}
	for _, p := range params {
		if *p.dst, err = boolParam(q, p.name); err != nil {
			return models.RestoreOptions{}, err
		}
	}
	return opts, nil
}

func readArtifact(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, ErrEmptyRequestBody
	}
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArtifactSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: artifact exceeds %d bytes", ErrInvalidRequestBody, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequestBody, err)
	}
	if len(content) == 0 {
		return nil, ErrEmptyRequestBody
	}
	return content, nil
}
