package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"fb_token_checker/internal/config"
	"fb_token_checker/internal/service"
	"fb_token_checker/types"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Сообщения, которые видит пользователь
const (
	MsgEmptyToken        = "Please enter an access token"
	MsgInvalidToken      = "Invalid access token"
	MsgNoFile            = "No file selected"
	MsgExtensionRejected = "Only .txt or .json files are allowed"
	MsgNoTokensInFile    = "No valid tokens found in file"
	MsgProcessingError   = "Error processing file"
	MsgInvalidForm       = "Invalid form submission"
)

var allowedExtensions = map[string]bool{
	"txt":  true,
	"json": true,
}

var (
	ErrNoFile              = errors.New("no file selected")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
)

//go:embed templates/*.html
var templatesFS embed.FS

type Handler struct {
	service   service.VerificationService
	uploadDir string
	maxBytes  int64
	index     *template.Template
	result    *template.Template
	logger    *zap.Logger
}

type indexView struct {
	MaxUploadMB int64
}

type resultView struct {
	InputMethod string
	Error       string

	Success     bool
	Token       string
	ProfileName string
	ProfileID   string
	Email       string

	FileResults []types.VerificationResult
	ValidCount  int
	TotalCount  int
}

func NewHandler(svc service.VerificationService, cfg config.UploadConfig, logger *zap.Logger) (*Handler, error) {
	index, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	result, err := template.ParseFS(templatesFS, "templates/result.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse result template: %w", err)
	}

	return &Handler{
		service:   svc,
		uploadDir: cfg.Dir,
		maxBytes:  cfg.MaxBytes,
		index:     index,
		result:    result,
		logger:    logger,
	}, nil
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.index, indexView{MaxUploadMB: h.maxBytes / (1024 * 1024)})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var err error
	if isMultipart(r) {
		err = r.ParseMultipartForm(h.maxBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("request body too large", zap.Int64("limit", tooLarge.Limit))
			h.renderResult(w, r, http.StatusRequestEntityTooLarge, resultView{
				InputMethod: types.InputMethodFile,
				Error:       fmt.Sprintf("File is too large (max %d MB)", h.maxBytes/(1024*1024)),
			})
			return
		}

		log.Warn("failed to parse form", zap.Error(err))
		h.renderResult(w, r, http.StatusBadRequest, resultView{Error: MsgInvalidForm})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	inputMethod := r.FormValue("input_method")
	if inputMethod == "" {
		inputMethod = types.InputMethodManual
	}

	switch inputMethod {
	case types.InputMethodManual:
		h.submitManual(w, r, log)
	case types.InputMethodFile:
		h.submitFile(w, r, log)
	default:
		h.Index(w, r)
	}
}

func (h *Handler) submitManual(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	view := resultView{InputMethod: types.InputMethodManual}

	result, err := h.service.VerifyToken(r.Context(), r.FormValue("access_token"))
	if err != nil {
		if errors.Is(err, service.ErrEmptyToken) {
			view.Error = MsgEmptyToken
		} else {
			log.Error("failed to verify token", zap.Error(err))
			view.Error = MsgInvalidToken
		}
		h.renderResult(w, r, http.StatusOK, view)
		return
	}

	if !result.Valid {
		view.Error = MsgInvalidToken
		h.renderResult(w, r, http.StatusOK, view)
		return
	}

	view.Success = true
	view.Token = result.Token
	view.ProfileName = result.ProfileName
	view.ProfileID = result.ProfileID
	view.Email = result.Email
	h.renderResult(w, r, http.StatusOK, view)
}

func (h *Handler) submitFile(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	view := resultView{InputMethod: types.InputMethodFile}

	file, header, err := uploadedFile(r)
	if err != nil {
		if errors.Is(err, ErrExtensionNotAllowed) {
			view.Error = MsgExtensionRejected
		} else {
			view.Error = MsgNoFile
		}
		log.Info("upload rejected", zap.Error(err))
		h.renderResult(w, r, http.StatusOK, view)
		return
	}
	defer file.Close()

	path, err := h.saveTemp(file, header.Filename)
	if err != nil {
		log.Error("failed to store uploaded file", zap.Error(err))
		view.Error = fmt.Sprintf("%s: %v", MsgProcessingError, err)
		h.renderResult(w, r, http.StatusOK, view)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove temporary file", zap.Error(err), zap.String("path", path))
		}
	}()

	results, err := h.service.ProcessTokenFile(r.Context(), path)
	if err != nil {
		log.Error("failed to process token file", zap.Error(err))
		view.Error = fmt.Sprintf("%s: %v", MsgProcessingError, err)
		h.renderResult(w, r, http.StatusOK, view)
		return
	}

	if len(results) == 0 {
		view.Error = MsgNoTokensInFile
		h.renderResult(w, r, http.StatusOK, view)
		return
	}

	view.FileResults = results
	view.ValidCount = types.CountValid(results)
	view.TotalCount = len(results)
	h.renderResult(w, r, http.StatusOK, view)
}

func uploadedFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("token_file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoFile, err)
	}
	if header.Filename == "" {
		file.Close()
		return nil, nil, ErrNoFile
	}
	if !AllowedFile(header.Filename) {
		file.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, header.Filename)
	}
	return file, header, nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// AllowedFile проверяет расширение файла без учёта регистра
func AllowedFile(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(filename[idx+1:])]
}

// saveTemp сохраняет загрузку под уникальным именем, сохраняя расширение:
// от него зависит способ разбора файла
func (h *Handler) saveTemp(src io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(h.uploadDir, "tokens-"+uuid.New().String()+ext)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	return path, nil
}

func (h *Handler) renderResult(w http.ResponseWriter, r *http.Request, status int, view resultView) {
	h.render(w, r, status, h.result, view)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render template",
			zap.Error(err),
			zap.String("template", tmpl.Name()),
			zap.String("request_id", middleware.GetReqID(r.Context())))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
