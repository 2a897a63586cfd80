// Note: To generate test data, set enable_test_routes and use:
// curl -X POST "http://localhost:8080/api/test/generate-users?count=5"
// The route takes no token, so never enable it outside development.
// or run: linkinpurry seed --users 5

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/rand"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/database"
	"linkinpurry/backend/handlers/connection"
	"linkinpurry/backend/handlers/feed"
	"linkinpurry/backend/handlers/httpx"
	"linkinpurry/backend/handlers/user"
)

// TestPassword is the password of every generated user.
const TestPassword = "testpass123"

const maxTestUsers = 150

var skills = []string{
	"Go", "PostgreSQL", "Kubernetes", "React", "TypeScript", "Product Management",
	"Data Analysis", "Machine Learning", "UX Research", "Public Speaking",
	"Technical Writing", "Sales", "Recruiting", "Accounting", "Cloud Architecture",
}

var jobTitles = []string{
	"Software Engineer", "Data Scientist", "Product Manager", "Designer",
	"Engineering Manager", "Recruiter", "Marketing Lead", "Consultant",
}

// SeedResult counts what a seeding run created.
type SeedResult struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
	Requests    int `json:"requests"`
	Posts       int `json:"posts"`
	Failed      int `json:"failed"`
}

// Seed creates count fake users and wires them into a random connection graph with a few
// pending requests and posts each.
func Seed(ctx context.Context, db *database.DB, count int) (*SeedResult, error) {
	if count < 1 || count > maxTestUsers {
		return nil, apperr.InvalidOperation(fmt.Sprintf("count must be between 1 and %d", maxTestUsers))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	dir := user.NewDirectory(db)
	conns := connection.NewService(db, dir, false)
	posts := feed.NewStore(db)
	rng := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))

	result := &SeedResult{}
	var ids []int64
	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		username := fmt.Sprintf("%s.%s%d", slug(first), slug(last), rng.Intn(10000))
		if len(username) > 32 {
			username = username[:32]
		}

		u, err := dir.Create(ctx, user.NewUser{
			Username:     username,
			Email:        username + "@" + strings.ToLower(gofakeit.DomainName()),
			FullName:     first + " " + last,
			PasswordHash: string(hashedPassword),
		})
		if err != nil {
			log.Warn().Err(err).Int("index", i+1).Str("username", username).Msg("error creating test user")
			result.Failed++
			continue
		}

		work := fmt.Sprintf("%s at %s (%d years)", jobTitles[rng.Intn(len(jobTitles))], gofakeit.Company(), rng.Intn(12)+1)
		skillSet := pick(rng, skills, rng.Intn(4)+1)
		_, err = dir.UpdateProfile(ctx, u.ID, user.ProfileUpdate{WorkHistory: &work, Skills: &skillSet})
		if err != nil {
			log.Warn().Err(err).Int64("user_id", u.ID).Msg("error filling test profile")
		}

		ids = append(ids, u.ID)
		result.Users++
		log.Debug().Int64("user_id", u.ID).Str("username", username).Msg("created test user")
	}

	for _, id := range ids {
		for _, j := range rng.Perm(len(ids))[:min(3, len(ids))] {
			other := ids[j]
			if other == id {
				continue
			}
			if err := conns.RequestConnection(ctx, id, other); err != nil {
				if apperr.CodeOf(err) == apperr.CodeInternal {
					return result, err
				}
				continue
			}
			if rng.Intn(3) == 0 {
				result.Requests++
				continue
			}
			if err := conns.AcceptRequest(ctx, other, id); err != nil {
				return result, err
			}
			result.Connections++
		}

		for n := rng.Intn(4); n > 0; n-- {
			content := gofakeit.Sentence(rng.Intn(20) + 5)
			if len(content) > feed.MaxContentLength {
				content = content[:feed.MaxContentLength]
			}
			if _, err := posts.Create(ctx, id, content); err != nil {
				return result, err
			}
			result.Posts++
		}
	}

	log.Info().
		Int("users", result.Users).
		Int("connections", result.Connections).
		Int("requests", result.Requests).
		Int("posts", result.Posts).
		Int("failed", result.Failed).
		Msg("test data generated")
	return result, nil
}

// GenerateTestDataHandler seeds ?count= users (default 10, at most 150)
// Used by: /api/test/generate-users, registered only when test routes are enabled
func GenerateTestDataHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := 10
		if countParam := r.URL.Query().Get("count"); countParam != "" {
			parsed, err := strconv.Atoi(countParam)
			if err != nil {
				httpx.WriteError(w, r, apperr.InvalidOperation("count must be a number"))
				return
			}
			count = parsed
		}

		result, err := Seed(r.Context(), db, count)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, "test data generated", result)
	}
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func pick(rng *rand.Rand, from []string, n int) string {
	chosen := make([]string, 0, n)
	for _, i := range rng.Perm(len(from))[:n] {
		chosen = append(chosen, from[i])
	}
	return strings.Join(chosen, ", ")
}
