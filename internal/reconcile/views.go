package reconcile

import (
	"sort"

	"github.com/noah-isme/academic-dashboard-api/internal/models"
)

// GroupView is a group with its references resolved for display.
type GroupView struct {
	models.Group
	CareerName   string  `json:"careerName"`
	SubjectName  string  `json:"subjectName"`
	TeacherName  string  `json:"teacherName"`
	StudentCount int     `json:"studentCount"`
	Occupancy    float64 `json:"occupancy"`
}

// SubjectView is a subject with its career resolved.
type SubjectView struct {
	models.Subject
	CareerName string `json:"careerName"`
	GroupCount int    `json:"groupCount"`
}

// CareerView is a career with its subject and group totals.
type CareerView struct {
	models.Career
	SubjectCount int `json:"subjectCount"`
	GroupCount   int `json:"groupCount"`
}

// ReconcileGroups resolves career, subject and teacher names for every group.
// Missing collections resolve to the sentinels.
func ReconcileGroups(groups []models.Group, careers []models.Career, subjects []models.Subject, users []models.User) []GroupView {
	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		careerID := g.CareerID
		if careerID == "" {
			careerID = subjectCareer(g.SubjectID, subjects)
		}
		out = append(out, GroupView{
			Group:        g,
			CareerName:   CareerName(careerID, careers),
			SubjectName:  SubjectName(g.SubjectID, subjects),
			TeacherName:  TeacherName(g.TeacherID, users),
			StudentCount: len(g.StudentIDs),
			Occupancy:    Percentage(len(g.StudentIDs), g.Capacity),
		})
	}
	return out
}

// ReconcileSubjects resolves the career name of every subject and counts the
// groups teaching it.
func ReconcileSubjects(subjects []models.Subject, careers []models.Career, groups []models.Group) []SubjectView {
	perSubject := CountBy(groups, func(g models.Group) string { return g.SubjectID })
	out := make([]SubjectView, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, SubjectView{
			Subject:    s,
			CareerName: CareerName(s.CareerID, careers),
			GroupCount: perSubject[s.ID],
		})
	}
	return out
}

// ReconcileCareers counts subjects and groups per career. A group without a
// career inherits the career of its subject.
func ReconcileCareers(careers []models.Career, subjects []models.Subject, groups []models.Group) []CareerView {
	subjectsPer := CountBy(subjects, func(s models.Subject) string { return s.CareerID })
	groupsPer := CountBy(groups, func(g models.Group) string {
		if g.CareerID != "" {
			return g.CareerID
		}
		return subjectCareer(g.SubjectID, subjects)
	})
	out := make([]CareerView, 0, len(careers))
	for _, c := range careers {
		out = append(out, CareerView{
			Career:       c,
			SubjectCount: subjectsPer[c.ID],
			GroupCount:   groupsPer[c.ID],
		})
	}
	return out
}

// GroupsTaughtBy returns the groups whose teacher is userID.
func GroupsTaughtBy(groups []models.Group, userID string) []models.Group {
	out := make([]models.Group, 0)
	if userID == "" {
		return out
	}
	for _, g := range groups {
		if g.TeacherID == userID {
			out = append(out, g)
		}
	}
	return out
}

// SortGroupViews orders views by career then group name.
func SortGroupViews(views []GroupView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].CareerName != views[j].CareerName {
			return views[i].CareerName < views[j].CareerName
		}
		return views[i].Name < views[j].Name
	})
}

func subjectCareer(subjectID string, subjects []models.Subject) string {
	if subjectID == "" {
		return ""
	}
	for _, s := range subjects {
		if s.ID == subjectID {
			return s.CareerID
		}
	}
	return ""
}
