package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		panic(err)
	}
}

// force timezone to IST because deployment hosts rarely sit in the
// portal's region, and session/cache TTL math depends on
// <time.Time>.Year()/Month()/Day() being portal-local.
func Now() time.Time {
	return time.Now().In(Location)
}
