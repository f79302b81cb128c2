package achievements

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dalemusser/collegeportal/internal/app/system/grading"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeaderboardSize is how many entries the response carries.
const LeaderboardSize = 10

// Badge definitions.
const (
	BadgeAcademicExcellence  = "academic-excellence"
	BadgeConsistentPerformer = "consistent-performer"
	BadgeTopScore            = "top-score"

	excellenceAverage = 90
	consistentCount   = 5
	perfectPercent    = 100
)

// CourseScore collects one student's percentages in one course.
type CourseScore struct {
	CourseID primitive.ObjectID
	Subject  string
	Percents []float64
}

// Stats is one student's aggregate over every graded submission.
type Stats struct {
	StudentID     primitive.ObjectID
	Name          string
	Email         string
	TotalPercent  float64
	TotalScore    float64
	TotalPossible float64
	Submissions   int
	BestPercent   float64
	LatestDate    time.Time
	Courses       []CourseScore
}

// Average is the mean percentage, 0 without submissions.
func (s *Stats) Average() float64 {
	if s.Submissions == 0 {
		return 0
	}
	return s.TotalPercent / float64(s.Submissions)
}

func (s *Stats) addCourse(id primitive.ObjectID, subject string, pct float64) {
	for i := range s.Courses {
		if s.Courses[i].CourseID == id {
			s.Courses[i].Percents = append(s.Courses[i].Percents, pct)
			return
		}
	}
	s.Courses = append(s.Courses, CourseScore{CourseID: id, Subject: subject, Percents: []float64{pct}})
}

// Aggregate folds the graded submissions of assignments into per-student
// stats, in first-seen order. Submissions whose student is not in users
// are ignored. Courses resolves subject names; a missing course keeps the
// submission but leaves it out of the per-course breakdown.
func Aggregate(assignments []models.Assignment, courses map[primitive.ObjectID]models.Course, users map[primitive.ObjectID]models.UserRef) []*Stats {
	var out []*Stats
	index := map[primitive.ObjectID]*Stats{}

	for _, a := range assignments {
		possible := a.PointsPossible()
		for _, sub := range a.Submissions {
			if !sub.Graded() {
				continue
			}
			u, ok := users[sub.StudentID]
			if !ok {
				continue
			}
			st := index[sub.StudentID]
			if st == nil {
				name := u.Name
				if name == "" {
					name = "Unknown"
				}
				st = &Stats{StudentID: sub.StudentID, Name: name, Email: u.Email}
				index[sub.StudentID] = st
				out = append(out, st)
			}

			grade := *sub.Grade
			pct := grade / possible * 100
			st.TotalPercent += pct
			st.TotalScore += grade
			st.TotalPossible += possible
			st.Submissions++
			if pct > st.BestPercent {
				st.BestPercent = pct
			}
			if d := a.ActivityDate(sub); d.After(st.LatestDate) {
				st.LatestDate = d
			}
			if c, ok := courses[a.CourseID]; ok {
				subject := c.Name
				if subject == "" {
					subject = "Course"
				}
				st.addCourse(c.ID, subject, pct)
			}
		}
	}
	return out
}

// Ranked is a Stats with its 1-based position.
type Ranked struct {
	*Stats
	Rank int
}

// Rank orders stats by average descending, then submission count
// descending, keeping input order for full ties.
func Rank(stats []*Stats) []Ranked {
	sorted := make([]*Stats, len(stats))
	copy(sorted, stats)
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := sorted[i].Average(), sorted[j].Average()
		if ai != aj {
			return ai > aj
		}
		return sorted[i].Submissions > sorted[j].Submissions
	})
	out := make([]Ranked, len(sorted))
	for i, s := range sorted {
		out[i] = Ranked{Stats: s, Rank: i + 1}
	}
	return out
}

// Initials takes the first letter of each name token, upper-cased.
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "U"
	}
	var b strings.Builder
	for _, f := range fields {
		r, _ := utf8.DecodeRuneInString(f)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Medal names ranks 1 to 3.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "gold"
	case 2:
		return "silver"
	case 3:
		return "bronze"
	}
	return ""
}

// Badge is one achievement and the caller's progress toward it.
type Badge struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Color       string  `json:"color"`
	Progress    int     `json:"progress"`
	EarnedDate  *string `json:"earnedDate"`
}

// Entry is one student's row on the leaderboard.
type Entry struct {
	Rank          int    `json:"rank"`
	Name          string `json:"name"`
	Initials      string `json:"initials"`
	Points        int    `json:"points"`
	Medal         string `json:"medal,omitempty"`
	IsCurrentUser bool   `json:"isCurrentUser"`
}

// Summary is the response of GET /achievements.
type Summary struct {
	TotalPoints  int     `json:"totalPoints"`
	BadgesEarned int     `json:"badgesEarned"`
	ClassRank    *int    `json:"classRank"`
	StreakDays   int     `json:"streakDays"`
	Badges       []Badge `json:"badges"`
	Leaderboard  []Entry `json:"leaderboard"`
}

func badge(id, name, desc, icon, color string, progress float64, earned bool, latest time.Time) Badge {
	b := Badge{
		ID:          id,
		Name:        name,
		Description: desc,
		Icon:        icon,
		Color:       color,
		Progress:    grading.RoundInt(grading.Clamp(progress)),
	}
	if earned && !latest.IsZero() {
		d := latest.UTC().Format("2006-01-02")
		b.EarnedDate = &d
	}
	return b
}

// Badges evaluates the badge definitions against st, which may be nil for
// a user without graded submissions.
func Badges(st *Stats) []Badge {
	if st == nil {
		st = &Stats{}
	}
	avg := st.Average()
	return []Badge{
		badge(BadgeAcademicExcellence, "Academic Excellence", "Maintain an average score of 90% or higher.",
			"trophy", "blue", avg/excellenceAverage*100, avg >= excellenceAverage, st.LatestDate),
		badge(BadgeConsistentPerformer, "Consistent Performer", "Complete at least 5 graded submissions.",
			"target", "purple", float64(st.Submissions)/consistentCount*100, st.Submissions >= consistentCount, st.LatestDate),
		badge(BadgeTopScore, "Top Score", "Achieve a perfect score on at least one assignment.",
			"star", "yellow", st.BestPercent, st.BestPercent >= perfectPercent, st.LatestDate),
	}
}

// Build assembles the achievements view for userID from the aggregate.
func Build(stats []*Stats, userID primitive.ObjectID) Summary {
	ranked := Rank(stats)

	sum := Summary{Leaderboard: []Entry{}}
	var mine *Stats
	for _, r := range ranked {
		if r.StudentID == userID {
			mine = r.Stats
			rank := r.Rank
			sum.ClassRank = &rank
		}
		if len(sum.Leaderboard) < LeaderboardSize {
			sum.Leaderboard = append(sum.Leaderboard, Entry{
				Rank:          r.Rank,
				Name:          r.Name,
				Initials:      Initials(r.Name),
				Points:        grading.RoundInt(r.Average()),
				Medal:         Medal(r.Rank),
				IsCurrentUser: r.StudentID == userID,
			})
		}
	}

	sum.Badges = Badges(mine)
	for _, b := range sum.Badges {
		if b.Progress >= 100 {
			sum.BadgesEarned++
		}
	}
	if mine != nil {
		sum.TotalPoints = grading.RoundInt(mine.TotalScore)
		sum.StreakDays = mine.Submissions
	}
	return sum
}
