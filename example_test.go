package tasktree_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AnatoleLucet/tasktree"
	"github.com/AnatoleLucet/tasktree/report"
)

func ExampleRuntime_Section() {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rt := tasktree.New(tasktree.WithClock(func() time.Time { return now }))

	_ = rt.Run("main", func() error {
		return rt.Planted(func(tree *tasktree.Tree) error {
			err := rt.Section("fill", func() error {
				now = now.Add(time.Minute)
				return nil
			})
			if err != nil {
				return err
			}

			s, _ := rt.CurrentSection()
			d, _ := s.Actual.Duration()
			fmt.Println(s.Name, d)
			return nil
		})
	})

	// Output:
	// fill 1m0s
}

func ExampleFirstInstance() {
	unit := tasktree.NewKey[string]("unit")
	rt := tasktree.New()

	_ = rt.Run("main", func() error {
		return rt.Planted(func(*tasktree.Tree) error {
			_ = tasktree.SetInstance(rt, unit, "litre")

			g, _, _ := rt.Group(context.Background())
			g.Go("worker", func(context.Context) error {
				v, err := tasktree.FirstInstance(rt, unit)
				fmt.Println(v, err)
				return nil
			})
			return g.Wait()
		})
	})

	// Output:
	// litre <nil>
}

func ExampleProjectsToTrail() {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	interval := func(from, to int) *tasktree.Interval {
		i := tasktree.Between(t0.Add(time.Duration(from)*time.Minute), t0.Add(time.Duration(to)*time.Minute))
		return &i
	}

	db := tasktree.NewProjectDatabase()
	db.Add(tasktree.Project{Name: "fill", Actual: interval(0, 5)})
	db.Add(tasktree.Project{Name: "stir", Actual: interval(2, 3)})
	db.Add(tasktree.Project{Name: "drain", Planned: interval(5, 10)})

	trail, _ := tasktree.ProjectsToTrail(db, tasktree.TrailConfig{})
	for _, entry := range report.TrailEntries(trail, time.Time{}) {
		fmt.Println(entry.At.Format("15:04"), entry.Name)
	}

	_ = report.NewWriter(os.Stdout).Status(report.StatusCompleted)

	// Output:
	// 10:00 fill
	// 10:02 stir
	// 10:03 fill
	// 10:05 drain
	// 10:10 <Idle>
	// {"status":"completed"}
}
