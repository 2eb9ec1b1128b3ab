package normalize_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/normalize"
)

func TestBinnedScore(t *testing.T) {
	Convey("Given the binned strategy", t, func() {
		cases := map[int]float64{1: 5, 3: 5, 4: 4, 5: 4, 7: 3, 10: 3, 15: 2, 20: 2, 21: 1, 50: 1, 200: 1, 350: 1}

		Convey("Then every rank should land in its bin", func() {
			for rank, want := range cases {
				got, ok := normalize.Score(normalize.Binned, rank)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Then scores stay within the value range", func() {
			lo, hi := normalize.ValueRange(normalize.Binned)
			for rank := 1; rank < 300; rank++ {
				v, _ := normalize.Score(normalize.Binned, rank)
				So(v, ShouldBeGreaterThan, lo)
				So(v, ShouldBeLessThan, hi)
			}
		})
	})
}

func TestClippedRank(t *testing.T) {
	Convey("Given the clipped-rank strategy", t, func() {
		Convey("Then ranks are capped at 20 and inverted", func() {
			v, _ := normalize.Score(normalize.ClippedRank, 1)
			So(v, ShouldEqual, 20)
			v, _ = normalize.Score(normalize.ClippedRank, 20)
			So(v, ShouldEqual, 1)
			v, _ = normalize.Score(normalize.ClippedRank, 87)
			So(v, ShouldEqual, 1)
		})
	})
}

func TestNormalize(t *testing.T) {
	e := model.NewRaceEvent(2023, "a/2023/", "1.UWT")
	row := model.RankRow{
		Event:    e,
		Riders:   []string{"A", "B", "C", "D"},
		Outcomes: []model.Outcome{model.Ranked(1), model.DNF(), model.Ranked(7), model.Ranked(4)},
	}

	Convey("Given an event with a non-finisher", t, func() {
		Convey("When normalizing with bins", func() {
			out, err := normalize.Normalize([]model.RankRow{row}, normalize.Binned)
			So(err, ShouldBeNil)

			Convey("Then the non-finisher should have no score", func() {
				So(out[0].Riders, ShouldResemble, []string{"A", "C", "D"})
				So(out[0].Values, ShouldResemble, []float64{5, 3, 4})
			})
		})

		Convey("When normalizing by percentile", func() {
			out, err := normalize.Normalize([]model.RankRow{row}, normalize.Percentile)
			So(err, ShouldBeNil)

			Convey("Then the best finisher is 1 and the worst is 0", func() {
				So(out[0].Riders, ShouldResemble, []string{"A", "C", "D"})
				So(out[0].Values, ShouldResemble, []float64{1, 0, 0.5})
			})
		})
	})

	Convey("Given tied and lone finishers", t, func() {
		tied := model.RankRow{
			Event:    e,
			Riders:   []string{"A", "B", "C"},
			Outcomes: []model.Outcome{model.Ranked(1), model.Ranked(1), model.Ranked(3)},
		}
		lone := model.RankRow{Event: e, Riders: []string{"A"}, Outcomes: []model.Outcome{model.Ranked(12)}}

		out, err := normalize.Normalize([]model.RankRow{tied, lone}, normalize.Percentile)
		So(err, ShouldBeNil)

		Convey("Then ties share their average position", func() {
			So(out[0].Values[0], ShouldEqual, 0.75)
			So(out[0].Values[1], ShouldEqual, 0.75)
			So(out[0].Values[2], ShouldEqual, 0)
		})

		Convey("Then a lone finisher scores 1", func() {
			So(out[1].Values, ShouldResemble, []float64{1})
		})
	})
}

func TestParseStrategy(t *testing.T) {
	Convey("Given configuration keys", t, func() {
		s, err := normalize.ParseStrategy("bins")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, normalize.Binned)

		s, err = normalize.ParseStrategy("percentile")
		So(err, ShouldBeNil)
		So(s, ShouldEqual, normalize.Percentile)

		_, err = normalize.ParseStrategy("zscore")
		So(errors.Is(err, normalize.ErrUnknownStrategy), ShouldBeTrue)

		_, err = normalize.Normalize(nil, normalize.Strategy(9))
		So(errors.Is(err, normalize.ErrUnknownStrategy), ShouldBeTrue)
	})
}
