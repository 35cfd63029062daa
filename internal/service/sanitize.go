package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/trivia-wave/internal/domain"
)

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText strips markup from text shown to players
func sanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// sanitizeContent strips markup from a question's title, options and their variables
func sanitizeContent(c domain.QuestionContent) domain.QuestionContent {
	out := domain.QuestionContent{
		Title:   sanitizeText(c.Title),
		Options: make([]string, len(c.Options)),
	}
	for i, opt := range c.Options {
		out.Options[i] = sanitizeText(opt)
	}
	if c.TitleVars != nil {
		out.TitleVars = sanitizeVars(c.TitleVars)
	}
	if c.OptionsVars != nil {
		out.OptionsVars = make([]map[string]string, len(c.OptionsVars))
		for i, vars := range c.OptionsVars {
			out.OptionsVars[i] = sanitizeVars(vars)
		}
	}
	return out
}

func sanitizeVars(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = sanitizeText(v)
	}
	return out
}
