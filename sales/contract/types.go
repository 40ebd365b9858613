package contract

import (
	"fmt"
	"strings"
	"time"
)

type Mode string

const (
	ModeInitialOutreach Mode = "Initial Outreach"
	ModeQualification   Mode = "Qualification"
	ModeObjection       Mode = "Objection Handling"
	ModeClosing         Mode = "Closing"
	ModeEnhance         Mode = "Rep Draft Enhancement"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{
	ModeInitialOutreach,
	ModeQualification,
	ModeObjection,
	ModeClosing,
	ModeEnhance,
}

func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// LogsInput reports whether the raw input is an incoming customer message
// (true) or a working draft/brief that is never written to the log (false).
func (m Mode) LogsInput() bool {
	return m != ModeInitialOutreach && m != ModeEnhance
}

// RequiresInput reports whether generation needs a non-empty input.
func (m Mode) RequiresInput() bool {
	return m != ModeInitialOutreach
}

// ParseMode accepts the mode name or a short alias (outreach, qualify,
// objection, closing, enhance).
func ParseMode(raw string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	switch key {
	case "outreach", "initial", strings.ToLower(string(ModeInitialOutreach)):
		return ModeInitialOutreach, nil
	case "qualify", "qualification":
		return ModeQualification, nil
	case "objection", "objections", strings.ToLower(string(ModeObjection)):
		return ModeObjection, nil
	case "closing", "close":
		return ModeClosing, nil
	case "enhance", "enhancement", strings.ToLower(string(ModeEnhance)):
		return ModeEnhance, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrValidation, raw)
}

type Language string

const (
	LanguageSyrian Language = "Syrian"
	LanguageGulf   Language = "Gulf"
	LanguageFormal Language = "Formal"
)

var Languages = []Language{LanguageSyrian, LanguageGulf, LanguageFormal}

func (l Language) Valid() bool {
	return l == LanguageSyrian || l == LanguageGulf || l == LanguageFormal
}

func ParseLanguage(raw string) (Language, error) {
	for _, l := range Languages {
		if strings.EqualFold(strings.TrimSpace(raw), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unknown language %q", ErrValidation, raw)
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleRep      Role = "rep"
	RoleAI       Role = "ai"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleRep || r == RoleAI
}

type BuyingStage string

const (
	StageAwareness     BuyingStage = "Awareness"
	StageInterest      BuyingStage = "Interest"
	StageConsideration BuyingStage = "Consideration"
	StageNegotiation   BuyingStage = "Negotiation"
	StageClosing       BuyingStage = "Closing"
)

var BuyingStages = []BuyingStage{
	StageAwareness,
	StageInterest,
	StageConsideration,
	StageNegotiation,
	StageClosing,
}

func (s BuyingStage) Valid() bool {
	for _, known := range BuyingStages {
		if s == known {
			return true
		}
	}
	return false
}

// CompanyContext is the seller-side profile used as the reference for every
// generated reply.
type CompanyContext struct {
	CompanyName    string      `json:"companyName"`
	Mission        string      `json:"mission"`
	Services       string      `json:"services"`
	PricingPolicy  string      `json:"pricingPolicy"`
	TargetAudience string      `json:"targetAudience"`
	BuyingStage    BuyingStage `json:"buyingStage"`
}

// Validate requires the buying stage to be one of BuyingStages.
func (c CompanyContext) Validate() error {
	if !c.BuyingStage.Valid() {
		return fmt.Errorf("%w: unsupported buyingStage=%q", ErrValidation, c.BuyingStage)
	}
	return nil
}

// Set updates one field addressed by its JSON name.
func (c *CompanyContext) Set(field, value string) error {
	switch field {
	case "companyName":
		c.CompanyName = value
	case "mission":
		c.Mission = value
	case "services":
		c.Services = value
	case "pricingPolicy":
		c.PricingPolicy = value
	case "targetAudience":
		c.TargetAudience = value
	case "buyingStage":
		stage := BuyingStage(strings.TrimSpace(value))
		if !stage.Valid() {
			return fmt.Errorf("%w: unsupported buyingStage=%q", ErrValidation, value)
		}
		c.BuyingStage = stage
	default:
		return fmt.Errorf("%w: unknown company field %q", ErrValidation, field)
	}
	return nil
}

// CustomerContext describes the customer currently being discussed. Every
// field is optional.
type CustomerContext struct {
	Name       string `json:"name"`
	Industry   string `json:"industry"`
	PainPoints string `json:"painPoints"`
	Budget     string `json:"budget"`
	Notes      string `json:"notes"`
}

func (c *CustomerContext) Set(field, value string) error {
	switch field {
	case "name":
		c.Name = value
	case "industry":
		c.Industry = value
	case "painPoints":
		c.PainPoints = value
	case "budget":
		c.Budget = value
	case "notes":
		c.Notes = value
	default:
		return fmt.Errorf("%w: unknown customer field %q", ErrValidation, field)
	}
	return nil
}

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Suggestion struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Explanation string `json:"explanation"`
}

// HistoryEntry is the serialized form of a logged message inside a prompt.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the compiled, provider-agnostic request sent to the
// suggestion gateway. Variables feed the suggestion chat template.
type GenerationRequest struct {
	Mode      Mode           `json:"mode"`
	Language  Language       `json:"language"`
	Variables map[string]any `json:"variables"`
	History   []HistoryEntry `json:"history,omitempty"`
}
