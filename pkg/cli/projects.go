package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/baynext/baynext/pkg/auth"
)

func newCreateProjectCommand() *Command {
	cmd := &Command{
		Name:        "create-project",
		Description: "Create a project owned by a user",
		Flags:       flag.NewFlagSet("create-project", flag.ContinueOnError),
		Run:         runCreateProject,
	}

	cmd.Flags.String("owner", "", "Owner email address")
	cmd.Flags.String("name", "", "Project name")
	cmd.Flags.String("description", "", "Project description")

	return cmd
}

func runCreateProject(args []string) error {
	cmd := newCreateProjectCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	email := strings.TrimSpace(cmd.Flags.Lookup("owner").Value.String())
	if email == "" {
		return fmt.Errorf("owner is required")
	}

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	owner, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", email, err)
	}

	project, err := auth.NewProject(owner.ID,
		cmd.Flags.Lookup("name").Value.String(),
		cmd.Flags.Lookup("description").Value.String())
	if err != nil {
		return err
	}
	if err := e.store.CreateProject(ctx, project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	fmt.Fprintf(output, "Created project %s (%s) owned by %s\n", project.ID, project.Name, owner.Email)
	return nil
}

func newListProjectsCommand() *Command {
	cmd := &Command{
		Name:        "list-projects",
		Description: "List the projects a user owns or belongs to",
		Flags:       flag.NewFlagSet("list-projects", flag.ContinueOnError),
		Run:         runListProjects,
	}

	cmd.Flags.String("user", "", "User email address")

	return cmd
}

func runListProjects(args []string) error {
	cmd := newListProjectsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	email := strings.TrimSpace(cmd.Flags.Lookup("user").Value.String())
	if email == "" {
		return fmt.Errorf("user is required")
	}

	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", email, err)
	}
	projects, err := e.store.ListProjectsForUser(ctx, user.ID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tCREATED")
	for _, p := range projects {
		role := "member"
		if p.OwnerID == user.ID {
			role = "owner"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, role, p.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
