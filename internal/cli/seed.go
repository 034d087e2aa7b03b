package cli

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"

	"dopamine-dashboard/internal/app"
	"dopamine-dashboard/internal/config"
	"dopamine-dashboard/internal/domain"
)

// NewSeedCmd loads demo accounts and a sample meet.
func NewSeedCmd(configPath *string) *cobra.Command {
	var adminEmail, adminPassword string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo admin, student and meet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL != "" {
				if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()
			return seed(cmd.Context(), svc, adminEmail, adminPassword)
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@dopamine.dev", "email of the demo admin")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "change-me-now", "password of the demo admin")
	return cmd
}

func seed(ctx context.Context, svc *services, adminEmail, adminPassword string) error {
	admin, err := ensureUser(ctx, svc, app.RegisterInput{Name: "Admin", Email: adminEmail, Password: adminPassword}, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if _, err := ensureUser(ctx, svc, app.RegisterInput{Name: "Demo Student", Email: "student@dopamine.dev", Password: "student-pass"}, domain.RoleStudent); err != nil {
		return err
	}

	meet, err := svc.meets.CreateMeet(ctx, admin.ID, sampleMeet())
	if err != nil {
		return err
	}
	log.Printf("seeded meet %q (%s) with %d questions", meet.Title, meet.ID, len(meet.Questions))
	return nil
}

func ensureUser(ctx context.Context, svc *services, in app.RegisterInput, role string) (domain.User, error) {
	user, err := svc.auth.CreateUser(ctx, in, role)
	if errors.Is(err, domain.ErrConflict) {
		log.Printf("user %s already exists, logging in", in.Email)
		session, err := svc.auth.Login(ctx, app.LoginInput{Email: in.Email, Password: in.Password})
		if err != nil {
			return domain.User{}, err
		}
		return session.User, nil
	}
	if err != nil {
		return domain.User{}, err
	}
	log.Printf("created %s %s", role, user.Email)
	return user, nil
}

func sampleMeet() app.CreateMeetInput {
	return app.CreateMeetInput{
		Title:           "Cell Biology Basics",
		Description:     "Warm-up meet covering organelles and heredity.",
		Category:        "Science",
		Difficulty:      "easy",
		ScheduledAt:     time.Now().UTC().Add(time.Hour).Truncate(time.Minute),
		DurationMinutes: 30,
		Questions: []app.QuestionInput{
			{Text: "Which organelle produces most of the cell's ATP?", Options: []string{"Nucleus", "Mitochondria", "Golgi apparatus", "Ribosome"}, CorrectIndex: 1},
			{Text: "What is the basic unit of heredity?", Options: []string{"Cell", "Protein", "Gene", "Lipid"}, CorrectIndex: 2},
			{Text: "Where does photosynthesis take place?", Options: []string{"Chloroplast", "Vacuole", "Lysosome"}, CorrectIndex: 0, Points: 15},
		},
	}
}
