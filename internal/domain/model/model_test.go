package model_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

func TestRaceEvent(t *testing.T) {
	Convey("Given race events from the calendar", t, func() {
		oneDay := model.NewRaceEvent(2023, "race/milano-sanremo/2023/", "1.UWT")
		gc := model.NewRaceEvent(2023, "tour-de-france/2023/", "2.UWT")
		stage := model.NewRaceEvent(2023, "tour-de-france/2023/stage-4", "2.UWT")

		Convey("Then the race prefix should be stripped", func() {
			So(oneDay.Slug, ShouldEqual, "milano-sanremo/2023/")
		})

		Convey("Then stage and GC flags follow the class and slug", func() {
			So(oneDay.IsMultiStage(), ShouldBeFalse)
			So(oneDay.IsGeneralClassification(), ShouldBeFalse)
			So(gc.IsGeneralClassification(), ShouldBeTrue)
			So(gc.IsStage(), ShouldBeFalse)
			So(stage.IsStage(), ShouldBeTrue)
		})

		Convey("Then keys should be distinct", func() {
			So(gc.Key(), ShouldNotEqual, stage.Key())
		})

		Convey("Then the class should parse from the full code", func() {
			c, err := stage.Class()
			So(err, ShouldBeNil)
			So(c, ShouldEqual, model.ClassUWT)
		})
	})

	Convey("Given an unmapped class code", t, func() {
		_, err := model.ParseRaceClass("2.HC")

		Convey("Then it should fail with ErrUnknownClass", func() {
			So(errors.Is(err, model.ErrUnknownClass), ShouldBeTrue)
		})
	})
}

func TestParseOutcome(t *testing.T) {
	Convey("Given rank cells", t, func() {
		Convey("When parsing a rank", func() {
			o, err := model.ParseOutcome("3")
			So(err, ShouldBeNil)
			rank, ok := o.Rank()
			So(ok, ShouldBeTrue)
			So(rank, ShouldEqual, 3)
		})

		Convey("When parsing non-finisher codes", func() {
			for _, code := range []string{"DNF", "dns", "OTL", "DSQ"} {
				o, err := model.ParseOutcome(code)
				So(err, ShouldBeNil)
				So(o.Kind(), ShouldEqual, model.DidNotFinish)
			}
		})

		Convey("When parsing an empty cell", func() {
			o, err := model.ParseOutcome("")
			So(err, ShouldBeNil)
			So(o.Kind(), ShouldEqual, model.DidNotParticipate)
		})

		Convey("When parsing garbage", func() {
			_, err := model.ParseOutcome("first")
			So(errors.Is(err, model.ErrInvalidOutcome), ShouldBeTrue)
			_, err = model.ParseOutcome("0")
			So(errors.Is(err, model.ErrInvalidOutcome), ShouldBeTrue)
		})
	})
}

func TestRiderAge(t *testing.T) {
	Convey("Given a rider born 21 September 1998", t, func() {
		r := model.Rider{Name: "POGAČAR Tadej", Nationality: "SI", BirthDate: time.Date(1998, 9, 21, 0, 0, 0, 0, time.UTC)}

		Convey("Then the age the day before the birthday is one lower", func() {
			age, ok := r.Age(time.Date(2023, 9, 20, 0, 0, 0, 0, time.UTC))
			So(ok, ShouldBeTrue)
			So(age, ShouldEqual, 24)
			age, _ = r.Age(time.Date(2023, 9, 21, 0, 0, 0, 0, time.UTC))
			So(age, ShouldEqual, 25)
		})

		Convey("Then a rider without birth date has no age", func() {
			_, ok := model.Rider{Name: "X"}.Age(time.Now())
			So(ok, ShouldBeFalse)
			So(model.Rider{Name: "X"}.HasProfile(), ShouldBeFalse)
			So(r.HasProfile(), ShouldBeTrue)
		})
	})
}

func TestResultsStore(t *testing.T) {
	Convey("Given a store with finishes, a DNF and an all-DNF event", t, func() {
		e1 := model.NewRaceEvent(2023, "a/2023/", "1.UWT")
		e2 := model.NewRaceEvent(2023, "b/2023/", "1.Pro")
		e3 := model.NewRaceEvent(2023, "c/2023/", "1.1")

		s := model.NewResultsStore()
		s.Record(e1, "A", model.Ranked(1))
		s.Record(e1, "B", model.Ranked(2))
		s.Record(e1, "C", model.DNF())
		s.Record(e2, "A", model.Ranked(4))
		s.Record(e3, "C", model.DNF())
		s.PutRider(model.Rider{Name: "A", Nationality: "BE"})

		Convey("Then outcomes are three-state", func() {
			o, err := s.Outcome(e1, "C")
			So(err, ShouldBeNil)
			So(o.Kind(), ShouldEqual, model.DidNotFinish)
			o, _ = s.Outcome(e2, "B")
			So(o.Kind(), ShouldEqual, model.DidNotParticipate)
			_, err = s.Outcome(model.NewRaceEvent(2020, "x/", "1.1"), "A")
			So(errors.Is(err, model.ErrUnknownEvent), ShouldBeTrue)
		})

		Convey("When cleaning", func() {
			c := s.Clean()

			Convey("Then DNFs vanish and empty events are dropped", func() {
				So(len(c.Events()), ShouldEqual, 2)
				So(c.RiderNames(), ShouldResemble, []string{"A", "B"})
				So(c.Len(), ShouldEqual, 3)
				_, ok := c.Rider("A")
				So(ok, ShouldBeTrue)
			})

			Convey("Then the original is untouched", func() {
				So(len(s.Events()), ShouldEqual, 3)
			})
		})

		Convey("When filtering to two participations", func() {
			f := s.FilterMinParticipations(2)

			Convey("Then only A survives", func() {
				So(f.RiderNames(), ShouldResemble, []string{"A"})
				So(f.Participations("A"), ShouldEqual, 2)
				So(len(f.Events()), ShouldEqual, 2)
			})
		})

		Convey("When exporting rank rows", func() {
			rows := s.RankRows()
			So(len(rows), ShouldEqual, 3)
			So(rows[0].Riders, ShouldResemble, []string{"A", "B", "C"})
		})
	})
}

func TestResultsMatrix(t *testing.T) {
	Convey("Given score rows", t, func() {
		e1 := model.NewRaceEvent(2023, "a/2023/", "1.UWT")
		e2 := model.NewRaceEvent(2023, "b/2023/", "1.UWT")
		m, err := model.NewResultsMatrix([]model.ScoreRow{
			{Event: e1, Riders: []string{"A", "B"}, Values: []float64{5, 4}},
			{Event: e2},
		})
		So(err, ShouldBeNil)

		Convey("Then empty events are dropped and triples flattened", func() {
			riders, events := m.Shape()
			So(riders, ShouldEqual, 2)
			So(events, ShouldEqual, 1)
			So(m.Triples(), ShouldResemble, []model.Triple{
				{Rider: "A", Event: e1.Key(), Target: 5},
				{Rider: "B", Event: e1.Key(), Target: 4},
			})
			So(m.MinParticipations(), ShouldEqual, 1)
		})

		Convey("Then mismatched rows are rejected", func() {
			_, err := model.NewResultsMatrix([]model.ScoreRow{{Event: e1, Riders: []string{"A"}}})
			So(err, ShouldNotBeNil)
		})
	})
}
