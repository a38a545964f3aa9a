package types

import "time"

const (
	// InvalidProfileName подставляется в результат для недействительного токена
	InvalidProfileName = "Invalid Token"

	displayTokenLength = 15
)

const (
	InputMethodManual = "manual"
	InputMethodFile   = "file"
)

// ProfileInfo представляет ответ эндпоинта /me
type ProfileInfo struct {
	Name  string `json:"name,omitempty"`
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// VerificationResult представляет результат проверки одного токена.
// Token хранит только усечённую для отображения форму.
type VerificationResult struct {
	Token       string `json:"token"`
	Valid       bool   `json:"valid"`
	ProfileName string `json:"profile_name"`
	ProfileID   string `json:"profile_id,omitempty"`
	Email       string `json:"email,omitempty"`
}

// BatchSummary содержит агрегированный итог проверки, без токенов
type BatchSummary struct {
	BatchID     string    `json:"batch_id"`
	InputMethod string    `json:"input_method"`
	Total       int       `json:"total"`
	Valid       int       `json:"valid"`
	FinishedAt  time.Time `json:"finished_at"`
}

func NewVerificationResult(token string, profile *ProfileInfo) VerificationResult {
	if profile == nil {
		return VerificationResult{
			Token:       DisplayToken(token),
			Valid:       false,
			ProfileName: InvalidProfileName,
		}
	}

	return VerificationResult{
		Token:       DisplayToken(token),
		Valid:       true,
		ProfileName: profile.Name,
		ProfileID:   profile.ID,
		Email:       profile.Email,
	}
}

// DisplayToken усекает токен до 15 символов и добавляет "..."
func DisplayToken(token string) string {
	runes := []rune(token)
	if len(runes) <= displayTokenLength {
		return token
	}
	return string(runes[:displayTokenLength]) + "..."
}

func CountValid(results []VerificationResult) int {
	valid := 0
	for _, r := range results {
		if r.Valid {
			valid++
		}
	}
	return valid
}
