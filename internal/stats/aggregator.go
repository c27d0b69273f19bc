// Package stats turns a user's profile, repositories and public events into
// the numbers shown on the portfolio's GitHub panel.
package stats

import (
	"time"

	"github-portfolio-stats/internal/model"
)

// dateLayout is the contribution map key format.
const dateLayout = "2006-01-02"

// Event weights for the contribution map. Push events weigh their commit count.
const (
	createWeight      = 2
	pullRequestWeight = 3
	defaultWeight     = 1
)

// Input holds everything the aggregator reads. SearchTotal is nil when the
// commit search was unavailable.
type Input struct {
	Profile      model.Profile
	Repositories []model.Repository
	Events       []model.Event
	SearchTotal  *int
}

// Zero is the result shown when the profile cannot be fetched.
func Zero() model.GitHubStats {
	return model.GitHubStats{ContributionMap: map[string]int{}}
}

// Aggregate computes the stats. It is a pure function of its input.
func Aggregate(in Input) model.GitHubStats {
	out := model.GitHubStats{
		Repos:           max(in.Profile.PublicRepos, 0),
		Followers:       max(in.Profile.Followers, 0),
		Following:       max(in.Profile.Following, 0),
		ContributionMap: make(map[string]int),
	}

	for _, r := range in.Repositories {
		out.TotalStars += max(r.Stars, 0)
	}

	recentCommits := 0
	for _, e := range in.Events {
		if e.Type == model.PushEvent {
			recentCommits += commitCount(e)
		}
		out.ContributionMap[e.CreatedAt.UTC().Format(dateLayout)] += Weight(e)
	}

	out.TotalCommits = recentCommits
	if in.SearchTotal != nil {
		out.TotalCommits = *in.SearchTotal
	}

	if len(in.Events) > 0 {
		last := in.Events[0].CreatedAt.UTC()
		out.LastPush = &last
	}
	return out
}

// commitCount is the number of commits a push event adds to the fallback
// total. An empty push counts zero; a push without a size counts one.
func commitCount(e model.Event) int {
	if e.Size == nil {
		return 1
	}
	return max(*e.Size, 0)
}

// Weight is an event's contribution to its day. A push always weighs at least 1.
func Weight(e model.Event) int {
	switch e.Type {
	case model.PushEvent:
		if e.Size == nil || *e.Size <= 0 {
			return 1
		}
		return *e.Size
	case model.CreateEvent:
		return createWeight
	case model.PullRequestEvent:
		return pullRequestWeight
	default:
		return defaultWeight
	}
}

// Heatmap lays the contribution map out as the last `days` calendar days ending
// at today (UTC), oldest first.
func Heatmap(contributions map[string]int, today time.Time, days int) []model.ContributionDay {
	if days <= 0 {
		return []model.ContributionDay{}
	}
	end := today.UTC()
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]model.ContributionDay, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := end.AddDate(0, 0, -i).Format(dateLayout)
		count := contributions[date]
		out = append(out, model.ContributionDay{Date: date, Count: count, Level: Level(count)})
	}
	return out
}

// Level buckets a day's count into the five heatmap intensities.
func Level(count int) int {
	switch {
	case count > 10:
		return 4
	case count > 6:
		return 3
	case count > 3:
		return 2
	case count > 0:
		return 1
	default:
		return 0
	}
}
