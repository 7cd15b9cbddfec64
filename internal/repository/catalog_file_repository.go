package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/noah-isme/course-planner-api/internal/models"
)

type catalogDocument struct {
	TermID  string                `json:"termId"`
	Courses []models.CourseRecord `json:"courses"`
}

// CatalogFileRepository reads the course catalog from a JSON document.
type CatalogFileRepository struct {
	path string
}

// NewCatalogFileRepository constructs the repository for the given path.
func NewCatalogFileRepository(path string) *CatalogFileRepository {
	return &CatalogFileRepository{path: path}
}

// LoadCourses decodes the document and keeps courses of termID. Courses
// without their own term inherit the document's term.
func (r *CatalogFileRepository) LoadCourses(ctx context.Context, termID string) ([]models.CourseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", r.path, err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog file %s: %w", r.path, err)
	}

	courses := make([]models.CourseRecord, 0, len(doc.Courses))
	for _, course := range doc.Courses {
		if course.TermID == "" {
			course.TermID = doc.TermID
		}
		if termID != "" && course.TermID != "" && course.TermID != termID {
			continue
		}
		for i := range course.Sections {
			if course.Sections[i].CourseID == "" {
				course.Sections[i].CourseID = course.ID
			}
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// Ping checks the catalog file is readable.
func (r *CatalogFileRepository) Ping(_ context.Context) error {
	_, err := os.Stat(r.path)
	return err
}
