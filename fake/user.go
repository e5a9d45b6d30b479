package fake

import (
	"strconv"
	"time"

	"github.com/sparkify/lake/fake/gen"
)

// User is a listener who shows up in the event logs.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Gender       string
	Level        string
	Location     string
	UserAgent    string
	Registration int64
}

var (
	maleNames   = []string{"Ryan", "Jacob", "Tegan", "Kevin", "Aleena", "Jayden", "Lily", "Cecilia", "Chloe", "Jacqueline"}
	femaleNames = []string{"Kate", "Lily", "Chloe", "Tegan", "Aleena", "Cecilia", "Jacqueline", "Mohammad", "Layla", "Sara"}
	lastNames   = []string{"Smith", "Klein", "Levine", "Harrell", "Koch", "Cuevas", "Kirby", "Lynch", "Byrd", "Graves"}
	metros      = []string{
		"San Jose-Sunnyvale-Santa Clara, CA",
		"Lansing-East Lansing, MI",
		"Chicago-Naperville-Elgin, IL-IN-WI",
		"New York-Newark-Jersey City, NY-NJ-PA",
		"Atlanta-Sandy Springs-Roswell, GA",
		"Portland-South Portland, ME",
		"San Francisco-Oakland-Hayward, CA",
	}
	agents = []string{
		`"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/36.0.1985.143 Safari/537.36"`,
		`"Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/37.0.2062.103 Safari/537.36"`,
		`Mozilla/5.0 (Windows NT 6.1; WOW64; rv:31.0) Gecko/20100101 Firefox/31.0`,
		`"Mozilla/5.0 (iPhone; CPU iPhone OS 7_1_2 like Mac OS X) AppleWebKit/537.51.2 (KHTML, like Gecko) Version/7.0 Mobile/11D257 Safari/9537.53"`,
	}
)

// UserGenerator generates fake Users.
type UserGenerator struct {
	g *gen.Generator
}

// NewUserGenerator gets a new UserGenerator.
func NewUserGenerator(seed int64) *UserGenerator {
	return &UserGenerator{g: gen.NewGenerator(seed)}
}

// User generates the user with the given numeric id, registered shortly
// before since.
func (ug *UserGenerator) User(id int, since time.Time) User {
	u := User{
		ID:           strconv.Itoa(id),
		LastName:     ug.g.Pick(lastNames),
		Level:        "free",
		Location:     ug.g.Pick(metros),
		UserAgent:    ug.g.Pick(agents),
		Registration: since.Add(-time.Duration(ug.g.Intn(30*24))*time.Hour).UnixNano() / int64(time.Millisecond),
	}
	if ug.g.Chance(0.5) {
		u.Gender, u.FirstName = "M", ug.g.Pick(maleNames)
	} else {
		u.Gender, u.FirstName = "F", ug.g.Pick(femaleNames)
	}
	if ug.g.Chance(0.25) {
		u.Level = "paid"
	}
	return u
}
