package pgview_test

import (
	"context"
	"fmt"
	"log"

	"github.com/pgview/pgview"
)

// ExampleMustRegister demonstrates declaring views at package init time.
func ExampleMustRegister() {
	pgview.MustRegister(
		&pgview.View{
			Name:  "active_users",
			Query: "SELECT id, name FROM users WHERE active",
		},
		&pgview.MaterializedView{
			Name:  "daily_stats",
			Query: "SELECT day, count(*) AS n FROM events GROUP BY day",
			Indexes: []pgview.Index{
				{Name: "daily_stats_day_idx", Columns: []string{"day"}, Unique: true},
			},
		},
	)

	fmt.Println("views registered")
	// Output: views registered
}

// ExampleClient_Plan demonstrates planning a migration from registered views.
func ExampleClient_Plan() {
	ctx := context.Background()

	client := pgview.NewClient(pgview.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "myapp",
		User:     "postgres",
		Password: "password",
		Schema:   "public",
	})

	migrationPlan, err := client.Plan(ctx, pgview.PlanOptions{})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(migrationPlan.HumanColored(false))
}

// ExampleClient_Apply demonstrates migrating views and refreshing them.
func ExampleClient_Apply() {
	ctx := context.Background()

	client := pgview.NewClient(pgview.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "myapp",
		User:     "postgres",
		Schema:   "public",
	})

	if err := client.Apply(ctx, pgview.ApplyOptions{}); err != nil {
		log.Fatal(err)
	}

	refreshed, err := client.Refresh(ctx, pgview.RefreshOptions{Concurrently: true})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("refreshed %d materialized views\n", len(refreshed))
}
