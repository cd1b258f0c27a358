package services

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dmitrijs2005/taskpilot/internal/common"
	"github.com/dmitrijs2005/taskpilot/internal/server/models"
	"github.com/google/uuid"
)

// Name patterns per entity kind. Teams are letters and spaces only;
// projects and tags also allow digits, underscore and dash; task names
// additionally allow dots.
var (
	teamNameRegex    = regexp.MustCompile(`^[A-Za-z ]+$`)
	projectNameRegex = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)
	tagNameRegex     = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)
	taskNameRegex    = regexp.MustCompile(`^[A-Za-z0-9 ._-]+$`)
)

func validateName(kind string, pattern *regexp.Regexp, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s name is required", common.ErrValidation, kind)
	}
	if !pattern.MatchString(name) {
		return fmt.Errorf("%w: invalid characters in %s name", common.ErrValidation, kind)
	}
	if len(strings.TrimSpace(name)) < 2 {
		return fmt.Errorf("%w: %s name must be at least 2 characters", common.ErrValidation, kind)
	}
	return nil
}

func validateTeamName(name string) error {
	return validateName("team", teamNameRegex, name)
}

func validateProjectName(name string) error {
	return validateName("project", projectNameRegex, name)
}

func validateTagName(name string) error {
	return validateName("tag", tagNameRegex, name)
}

func validateTaskName(name string) error {
	return validateName("task", taskNameRegex, name)
}

func validateTimeToComplete(days int) error {
	if days < 1 {
		return fmt.Errorf("%w: time to complete must be at least 1 day", common.ErrValidation)
	}
	return nil
}

// Status and priority are optional on input; empty values fall back to the
// schema defaults.
func validateStatus(status string) error {
	if status == "" {
		return nil
	}
	if !slices.Contains(models.AllowedStatuses, status) {
		return fmt.Errorf("%w: invalid status value", common.ErrValidation)
	}
	return nil
}

func validatePriority(priority string) error {
	if priority == "" {
		return nil
	}
	if !slices.Contains(models.AllowedPriorities, priority) {
		return fmt.Errorf("%w: invalid priority value", common.ErrValidation)
	}
	return nil
}

// validID reports whether id is a well-formed entity reference.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// dedupe removes repeated ids while preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
