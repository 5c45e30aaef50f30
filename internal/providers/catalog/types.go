package catalog

import "github.com/GriffinCanCode/codefixlab/internal/sandbox"

// Kind names one of the catalog sections
type Kind string

const (
	KindErrors       Kind = "errors"
	KindProjects     Kind = "projects"
	KindMiniProjects Kind = "mini-projects"
)

// Preview is the source bundle rendered as a live example
type Preview struct {
	Markup string `yaml:"markup" json:"markup"`
	Style  string `yaml:"style" json:"style"`
	Script string `yaml:"script" json:"script"`
}

// Bundle converts the preview into sandbox input
func (p Preview) Bundle() sandbox.SourceBundle {
	return sandbox.SourceBundle{Markup: p.Markup, Style: p.Style, Script: p.Script}
}

// CommonError is one entry of the common errors accordion
type CommonError struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Icon     string   `yaml:"icon" json:"icon"`
	Problem  string   `yaml:"problem" json:"problem"`
	Mistakes []string `yaml:"mistakes" json:"mistakes"`
	Solution string   `yaml:"solution" json:"solution"`
	Language string   `yaml:"language" json:"language"`
	Code     string   `yaml:"code" json:"code"`
	Preview  Preview  `yaml:"preview" json:"preview"`
}

// Project is a downloadable source code template
type Project struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
	Language    string   `yaml:"language" json:"language"`
	Code        string   `yaml:"code" json:"code"`
}

// MiniProject is a practice project with viva questions
type MiniProject struct {
	ID            string   `yaml:"id" json:"id"`
	Title         string   `yaml:"title" json:"title"`
	Features      []string `yaml:"features" json:"features"`
	VivaQuestions []string `yaml:"viva_questions" json:"viva_questions"`
	Preview       Preview  `yaml:"preview" json:"preview"`
}

// File is a downloadable artifact
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type document struct {
	Errors       []CommonError `yaml:"errors"`
	Projects     []Project     `yaml:"projects"`
	MiniProjects []MiniProject `yaml:"mini_projects"`
}
