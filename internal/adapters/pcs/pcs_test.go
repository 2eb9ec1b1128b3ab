package pcs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

const overviewStageRace = `<html><body>
<ul class="infolist">
  <li><div>Startdate:</div> <div>2023-07-01</div></li>
  <li><div>Enddate:</div> <div>2023-07-23</div></li>
  <li><div>Category:</div> <div>Men Elite</div></li>
</ul>
<table><tbody>
  <tr><td><a href="race/tour-de-france/2023/stage-1">Stage 1</a></td></tr>
  <tr><td><a href="race/tour-de-france/2023/stage-2/result">Stage 2</a></td></tr>
  <tr><td><a href="race/tour-de-france/2023/stage-1">Stage 1 again</a></td></tr>
  <tr><td><a href="race/tour-de-france/2022/stage-1">Last year</a></td></tr>
  <tr><td><a href="race/tour-de-france/2023/gc">GC</a></td></tr>
</tbody></table>
</body></html>`

const overviewOneDay = `<html><body>
<ul class="infolist">
  <li><div>Date:</div> <div>18 March 2023</div></li>
</ul>
</body></html>`

const stageResult = `<html><body>
<ul class="restabs"><li><a>Stage</a></li><li><a>GC</a></li></ul>
<div class="result-cont"><table class="results"><tbody>
  <tr><td>1</td><td><a href="rider/jasper-philipsen">PHILIPSEN Jasper</a></td></tr>
  <tr><td>2</td><td><a href="rider/wout-van-aert"><span>VAN AERT</span> Wout</a></td></tr>
  <tr><td>DNF</td><td><a href="rider/primoz-roglic">ROGLIČ Primož</a></td></tr>
  <tr><td></td><td><a href="rider/nobody">NOBODY Really</a></td></tr>
  <tr><td>3</td><td>no rider link</td></tr>
</tbody></table></div>
<div class="result-cont"><table class="results"><tbody>
  <tr><td>1</td><td><a href="rider/jonas-vingegaard">VINGEGAARD Jonas</a></td></tr>
  <tr><td>2</td><td><a href="rider/tadej-pogacar">POGAČAR Tadej</a></td></tr>
</tbody></table></div>
</body></html>`

const riderPage = `<html><body>
<div class="rdr-info-cont">
  <span class="flag si"></span>
  <b>Date of birth:</b> 21st September 1998 (25)
</div>
</body></html>`

func newTestServer(hits *int32) *httptest.Server {
	mux := http.NewServeMux()
	pages := map[string]string{
		"/race/tour-de-france/2023/overview":     overviewStageRace,
		"/race/milano-sanremo/2023/overview":     overviewOneDay,
		"/race/tour-de-france/2023/":             stageResult,
		"/race/tour-de-france/2023/stage-1":      stageResult,
		"/rider/tadej-pogacar":                   riderPage,
		"/race/broken/2023/overview":             `<html><body><p>maintenance</p></body></html>`,
		"/race/tour-de-france/2023/stage-broken": `<html><body></body></html>`,
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path == "/race/flaky/2023/overview" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

func TestClient(t *testing.T) {
	Convey("Given a client against a fixture site", t, func() {
		srv := newTestServer(nil)
		defer srv.Close()
		c := New(srv.URL, WithRateLimit(0), WithTimeout(time.Second))
		ctx := context.Background()

		Convey("A stage race overview lists its stages once, in order", func() {
			meta, ok := c.FetchRaceEvent(ctx, "race/tour-de-france/2023")
			So(ok, ShouldBeTrue)
			So(meta.OneDay, ShouldBeFalse)
			So(meta.StageURLs, ShouldResemble, []string{
				"race/tour-de-france/2023/stage-1",
				"race/tour-de-france/2023/stage-2",
			})
			So(meta.StartDate, ShouldEqual, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC))
			So(meta.EndDate, ShouldEqual, time.Date(2023, 7, 23, 0, 0, 0, 0, time.UTC))
		})

		Convey("A one-day race has no stages and ends on its start date", func() {
			meta, ok := c.FetchRaceEvent(ctx, "race/milano-sanremo/2023")
			So(ok, ShouldBeTrue)
			So(meta.OneDay, ShouldBeTrue)
			So(meta.EndDate, ShouldEqual, time.Date(2023, 3, 18, 0, 0, 0, 0, time.UTC))
		})

		Convey("Stage results keep ranked and DNF rows only", func() {
			placings, ok := c.FetchStageOrGCResult(ctx, "race/tour-de-france/2023/stage-1")
			So(ok, ShouldBeTrue)
			So(placings, ShouldHaveLength, 3)
			So(placings[0], ShouldResemble, Placing{Rider: "PHILIPSEN Jasper", RiderSlug: "jasper-philipsen", Outcome: model.Ranked(1)})
			So(placings[1].Rider, ShouldEqual, "VAN AERT Wout")
			So(placings[2].Outcome, ShouldResemble, model.DNF())
		})

		Convey("The base page of a stage race yields the GC table", func() {
			placings, ok := c.FetchStageOrGCResult(ctx, "race/tour-de-france/2023/")
			So(ok, ShouldBeTrue)
			So(placings, ShouldHaveLength, 2)
			So(placings[0].RiderSlug, ShouldEqual, "jonas-vingegaard")
			So(placings[1].Outcome, ShouldResemble, model.Ranked(2))
		})

		Convey("Rider profiles carry nationality and birth date", func() {
			p, ok := c.FetchRiderProfile(ctx, "tadej-pogacar")
			So(ok, ShouldBeTrue)
			So(p.Nationality, ShouldEqual, "SI")
			So(p.BirthDate, ShouldEqual, time.Date(1998, 9, 21, 0, 0, 0, 0, time.UTC))
		})

		Convey("Missing and unparseable pages are gaps, not errors", func() {
			_, ok := c.FetchRaceEvent(ctx, "race/unknown/2023")
			So(ok, ShouldBeFalse)
			_, ok = c.FetchRaceEvent(ctx, "race/broken/2023")
			So(ok, ShouldBeFalse)
			_, ok = c.FetchStageOrGCResult(ctx, "race/tour-de-france/2023/stage-broken")
			So(ok, ShouldBeFalse)
			_, ok = c.FetchRiderProfile(ctx, "nobody")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestClientBreaker(t *testing.T) {
	Convey("Given a site that keeps failing", t, func() {
		var hits int32
		srv := newTestServer(&hits)
		defer srv.Close()
		c := New(srv.URL, WithRateLimit(0), WithBreaker(2, time.Minute))
		ctx := context.Background()

		Convey("The breaker opens after consecutive failures and stops requests", func() {
			for i := 0; i < 5; i++ {
				_, ok := c.FetchRaceEvent(ctx, "race/flaky/2023")
				So(ok, ShouldBeFalse)
			}
			So(atomic.LoadInt32(&hits), ShouldEqual, 2)
			So(c.BreakerState(), ShouldEqual, "open")
		})

		Convey("Not-found pages do not trip the breaker", func() {
			for i := 0; i < 5; i++ {
				_, ok := c.FetchRaceEvent(ctx, "race/unknown/2023")
				So(ok, ShouldBeFalse)
			}
			So(atomic.LoadInt32(&hits), ShouldEqual, 5)
			So(c.BreakerState(), ShouldEqual, "closed")
		})
	})
}

func TestGapReason(t *testing.T) {
	Convey("Gap reasons classify wrapped errors", t, func() {
		So(gapReason(ErrNotFound), ShouldEqual, "not_found")
		So(gapReason(ErrParse), ShouldEqual, "parse")
		So(gapReason(ErrStatus), ShouldEqual, "status")
		So(gapReason(context.DeadlineExceeded), ShouldEqual, "network")
	})
}
