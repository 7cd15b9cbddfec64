package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-planner-api/internal/models"
)

// CatalogRepository reads the course catalog from Postgres. It never writes.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

type prerequisiteRow struct {
	CourseID       string `db:"course_id"`
	PrerequisiteID string `db:"prerequisite_id"`
}

// LoadCourses returns every course of the term with its sections, meetings
// and prerequisites. An empty termID loads the whole catalog.
func (r *CatalogRepository) LoadCourses(ctx context.Context, termID string) ([]models.CourseRecord, error) {
	query := `SELECT id, code, name, credits, department, term_id FROM courses`
	var args []interface{}
	if termID != "" {
		query += ` WHERE term_id = $1`
		args = append(args, termID)
	}
	query += ` ORDER BY code ASC`

	var courses []models.CourseRecord
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if len(courses) == 0 {
		return courses, nil
	}

	courseIDs := make([]string, len(courses))
	for i, course := range courses {
		courseIDs[i] = course.ID
	}

	const sectionQuery = `SELECT id, course_id, section_number, instructors, capacity, enrolled, waitlist, section_type, credits, locked
FROM sections WHERE course_id = ANY($1) ORDER BY course_id ASC, position ASC, section_number ASC`
	var sections []models.SectionRecord
	if err := r.db.SelectContext(ctx, &sections, sectionQuery, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	sectionIDs := make([]string, len(sections))
	for i, section := range sections {
		sectionIDs[i] = section.ID
	}

	var meetings []models.MeetingRecord
	if len(sectionIDs) > 0 {
		const meetingQuery = `SELECT section_id, days, start_time, end_time, location, kind
FROM section_meetings WHERE section_id = ANY($1) ORDER BY section_id ASC, position ASC`
		if err := r.db.SelectContext(ctx, &meetings, meetingQuery, pq.Array(sectionIDs)); err != nil {
			return nil, fmt.Errorf("list section meetings: %w", err)
		}
	}

	const prereqQuery = `SELECT course_id, prerequisite_id FROM course_prerequisites WHERE course_id = ANY($1) ORDER BY course_id ASC, prerequisite_id ASC`
	var prereqs []prerequisiteRow
	if err := r.db.SelectContext(ctx, &prereqs, prereqQuery, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list course prerequisites: %w", err)
	}

	meetingsBySection := make(map[string][]models.MeetingRecord, len(sections))
	for _, meeting := range meetings {
		meetingsBySection[meeting.SectionID] = append(meetingsBySection[meeting.SectionID], meeting)
	}
	sectionsByCourse := make(map[string][]models.SectionRecord, len(courses))
	for _, section := range sections {
		section.Meetings = meetingsBySection[section.ID]
		sectionsByCourse[section.CourseID] = append(sectionsByCourse[section.CourseID], section)
	}
	prereqsByCourse := make(map[string][]string, len(courses))
	for _, row := range prereqs {
		prereqsByCourse[row.CourseID] = append(prereqsByCourse[row.CourseID], row.PrerequisiteID)
	}

	for i := range courses {
		courses[i].Sections = sectionsByCourse[courses[i].ID]
		courses[i].Prerequisites = prereqsByCourse[courses[i].ID]
	}
	return courses, nil
}

// Ping verifies the catalog database is reachable.
func (r *CatalogRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
