package control

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/infra/storage/memory"
)

// Fixtures is the seed file format for the memory backend.
type Fixtures struct {
	Users []struct {
		ID   string      `yaml:"id"`
		Name string      `yaml:"name"`
		Role domain.Role `yaml:"role"`
	} `yaml:"users"`
	Lists []struct {
		ID       string `yaml:"id"`
		BoardID  string `yaml:"board_id"`
		Name     string `yaml:"name"`
		Position int    `yaml:"position"`
	} `yaml:"lists"`
	Tasks []struct {
		ID          string `yaml:"id"`
		ListID      string `yaml:"list_id"`
		Title       string `yaml:"title"`
		StoryPoints int    `yaml:"story_points"`
		Assignee    string `yaml:"assignee"`
	} `yaml:"tasks"`
}

// LoadFixtures reads a YAML fixtures file into s.
func LoadFixtures(path string, s *memory.MemoryStorage) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixtures: %w", err)
	}

	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse fixtures: %w", err)
	}

	for _, u := range f.Users {
		role := u.Role
		if role == "" {
			role = domain.RoleMember
		}
		if !role.Valid() {
			return fmt.Errorf("user %s has unknown role %q", u.ID, role)
		}
		s.PutUser(&domain.User{ID: u.ID, Name: u.Name, Role: role})
	}
	for _, l := range f.Lists {
		s.PutList(&domain.List{ID: l.ID, BoardID: l.BoardID, Name: l.Name, Position: l.Position})
	}
	for _, t := range f.Tasks {
		task := &domain.Task{ID: t.ID, ListID: t.ListID, Title: t.Title, StoryPoints: t.StoryPoints}
		if t.Assignee != "" {
			assignee := t.Assignee
			task.AssigneeID = &assignee
		}
		s.PutTask(task)
	}
	return nil
}
