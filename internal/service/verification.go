package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fb_token_checker/internal/graphapi"
	"fb_token_checker/internal/messaging"
	"fb_token_checker/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEmptyToken = errors.New("access token cannot be empty")

type VerificationService interface {
	VerifyToken(ctx context.Context, token string) (types.VerificationResult, error)
	ProcessTokenFile(ctx context.Context, path string) ([]types.VerificationResult, error)
}

type TokenObserver interface {
	ObserveToken(inputMethod string, valid bool)
}

type verificationService struct {
	client    graphapi.ProfileClient
	publisher messaging.Publisher
	observer  TokenObserver
	logger    *zap.Logger
}

func NewVerificationService(client graphapi.ProfileClient, publisher messaging.Publisher, observer TokenObserver, logger *zap.Logger) VerificationService {
	return &verificationService{
		client:    client,
		publisher: publisher,
		observer:  observer,
		logger:    logger,
	}
}

func (s *verificationService) VerifyToken(ctx context.Context, token string) (types.VerificationResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.VerificationResult{}, ErrEmptyToken
	}

	result := s.verify(ctx, token, types.InputMethodManual)
	s.publishSummary(ctx, types.InputMethodManual, []types.VerificationResult{result})

	return result, nil
}

// ProcessTokenFile проверяет токены из файла строго последовательно, в порядке следования
func (s *verificationService) ProcessTokenFile(ctx context.Context, path string) ([]types.VerificationResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to read token file", zap.Error(err), zap.String("path", path))
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	tokens := ParseTokens(path, content)
	s.logger.Info("processing token file", zap.String("path", path), zap.Int("tokens", len(tokens)))

	results := make([]types.VerificationResult, 0, len(tokens))
	for _, token := range tokens {
		results = append(results, s.verify(ctx, token, types.InputMethodFile))
	}

	if len(results) > 0 {
		s.publishSummary(ctx, types.InputMethodFile, results)
	}

	return results, nil
}

func (s *verificationService) verify(ctx context.Context, token, inputMethod string) types.VerificationResult {
	result := types.NewVerificationResult(token, s.client.GetProfile(ctx, token))

	if s.observer != nil {
		s.observer.ObserveToken(inputMethod, result.Valid)
	}

	return result
}

// Публикация итогов не влияет на ответ пользователю
func (s *verificationService) publishSummary(ctx context.Context, inputMethod string, results []types.VerificationResult) {
	summary := types.BatchSummary{
		BatchID:     uuid.New().String(),
		InputMethod: inputMethod,
		Total:       len(results),
		Valid:       types.CountValid(results),
		FinishedAt:  time.Now().UTC(),
	}

	s.logger.Info("tokens verified",
		zap.String("batch_id", summary.BatchID),
		zap.String("input_method", inputMethod),
		zap.Int("total", summary.Total),
		zap.Int("valid", summary.Valid))

	if err := s.publisher.PublishBatchVerified(ctx, summary); err != nil {
		s.logger.Warn("failed to publish verification summary", zap.Error(err), zap.String("batch_id", summary.BatchID))
	}
}

// ParseTokens извлекает непустые токены из содержимого файла.
// Файл .json читается как {"tokens": [...]}; при синтаксической ошибке JSON
// содержимое разбирается построчно, как .txt.
func ParseTokens(name string, content []byte) []string {
	if strings.EqualFold(filepath.Ext(name), ".json") && json.Valid(content) {
		return parseJSONTokens(content)
	}
	return parseLineTokens(content)
}

func parseJSONTokens(content []byte) []string {
	var doc struct {
		Tokens []json.RawMessage `json:"tokens"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil
	}

	tokens := make([]string, 0, len(doc.Tokens))
	for _, raw := range doc.Tokens {
		var token string
		if err := json.Unmarshal(raw, &token); err != nil {
			continue
		}
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func parseLineTokens(content []byte) []string {
	lines := strings.Split(string(content), "\n")

	tokens := make([]string, 0, len(lines))
	for _, line := range lines {
		if token := strings.TrimSpace(line); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
