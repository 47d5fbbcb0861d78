package cli

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"sigs.k8s.io/yaml"

	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
	"github.com/tansive/mockinterview/pkg/api"
)

func newStartCmd() *cobra.Command {
	var (
		kind       string
		difficulty string
		duration   string
		focus      []string
		count      int
	)
	cmd := &cobra.Command{
		Use:   "start [flags]",
		Short: "Start a new interview and make it current",
		Long: `Start a new interview. The new interview becomes current, so the next
"answer" is taken as your introduction.

Examples:
  interviewctl start --kind technical --difficulty hard --focus "distributed systems" --focus go
  interviewctl start --kind screening --count 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(GetConfig())
			if err != nil {
				return err
			}
			sess, err := client.Start(commandContext(cmd), api.StartRequest{
				Kind: api.InterviewKind(kind),
				Settings: api.StartSettings{
					Difficulty:    difficulty,
					Duration:      duration,
					FocusAreas:    focus,
					QuestionCount: count,
				},
			})
			if err != nil {
				return err
			}
			if err := GetConfig().setCurrent(sess.ID.String(), nil); err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, map[string]any{"result": 1, "value": sess})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s interview %s (%d questions)\n", okLabel.Sprint("Started"), sess.Kind, sess.ID, sess.Settings.QuestionCount)
			fmt.Fprintln(w, `Introduce yourself with: interviewctl answer "..."`)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(models.KindTechnical), "Interview kind: technical, behavioral or screening")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard")
	cmd.Flags().StringVar(&duration, "duration", "", "short, medium or long")
	cmd.Flags().StringSliceVar(&focus, "focus", nil, "Focus area; repeat for more than one")
	cmd.Flags().IntVar(&count, "count", 0, "Number of questions; overrides --duration")
	return cmd
}

func newAnswerCmd() *cobra.Command {
	var (
		id        string
		index     int
		nextIndex int
		first     bool
		last      bool
		forceNew  bool
	)
	cmd := &cobra.Command{
		Use:   "answer [TEXT...] [flags]",
		Short: "Answer the current question",
		Long: `Send one answer to the current interview. The first answer after "start" is
your introduction. Use "-" to read the answer from standard input.

Examples:
  interviewctl answer "I split the monolith along billing boundaries."
  interviewctl answer - < answer.txt
  interviewctl answer --index 1 "A better answer to the second question."
  interviewctl answer --last "Thank you, no more questions from me."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig()
			sessionID, err := resolveInterview(cfg, id)
			if err != nil {
				return err
			}
			text, err := answerText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			turn := api.Turn{
				Answer:           text,
				IsLastQuestion:   last,
				ForceNewQuestion: forceNew,
			}
			switch {
			case index >= 0:
				turn.QuestionIndex = &index
			case cfg.CurrentQuestion != nil && cfg.CurrentInterview == sessionID.String():
				current := *cfg.CurrentQuestion
				turn.QuestionIndex = &current
			}
			turn.IsFirstQuestion = first || turn.QuestionIndex == nil
			if nextIndex >= 0 {
				turn.NextQuestionIndex = &nextIndex
			}

			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			rsp, err := client.Turn(commandContext(cmd), sessionID, turn)
			if err != nil {
				return err
			}

			if rsp.Terminal {
				err = cfg.setCurrent("", nil)
			} else {
				next := rsp.QuestionIndex
				err = cfg.setCurrent(sessionID.String(), &next)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, map[string]any{"result": 1, "value": rsp})
			}
			printTurn(cmd.OutOrStdout(), rsp)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Interview id; defaults to the current interview")
	cmd.Flags().IntVar(&index, "index", -1, "Index of the question being answered; defaults to the current question")
	cmd.Flags().IntVar(&nextIndex, "next-index", -1, "Slot to place the next question in")
	cmd.Flags().BoolVar(&first, "first", false, "Treat this answer as the introduction")
	cmd.Flags().BoolVar(&last, "last", false, "End the interview after this answer")
	cmd.Flags().BoolVar(&forceNew, "force-new", false, "Replace the current question instead of moving on")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [INTERVIEW_ID]",
		Short: "Show an interview as YAML, or JSON with -j",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig()
			sessionID, err := resolveInterview(cfg, firstArg(args))
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			sess, _, _, err := client.Get(commandContext(cmd), sessionID, "")
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, map[string]any{"result": 1, "value": sess})
			}
			out, err := yaml.Marshal(sess)
			if err != nil {
				return fmt.Errorf("failed to format YAML output: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your interviews, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig()
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			list, err := client.List(commandContext(cmd), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, map[string]any{"result": 1, "value": list})
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No interviews found")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tSTATUS\tANSWERED\tSCORE\tCREATED")
			for _, s := range list {
				marker := ""
				if s.ID.String() == cfg.CurrentInterview {
					marker = " *"
				}
				score := "-"
				if s.OverallScore != nil {
					score = fmt.Sprintf("%.1f", *s.OverallScore)
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\t%d/%d\t%s\t%s\n",
					s.ID, marker, s.Kind, statusLabel(s.Status), s.Answered, s.QuestionCount, score, s.CreatedAt)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of interviews to list")
	return cmd
}

func newAbandonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abandon [INTERVIEW_ID]",
		Short: "End an interview without a report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig()
			sessionID, err := resolveInterview(cfg, firstArg(args))
			if err != nil {
				return err
			}
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			sess, err := client.Abandon(commandContext(cmd), sessionID)
			if err != nil {
				return err
			}
			if cfg.CurrentInterview == sessionID.String() {
				if err := cfg.setCurrent("", nil); err != nil {
					return err
				}
			}
			if jsonOutput {
				return printJSON(cmd, map[string]any{"result": 1, "value": sess})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Interview %s is %s\n", sess.ID, statusLabel(sess.Status))
			return nil
		},
	}
}

func resolveInterview(cfg *Config, explicit string) (uuid.UUID, error) {
	raw := explicit
	if raw == "" {
		raw = cfg.CurrentInterview
	}
	if raw == "" {
		return uuid.Nil, errors.New(`no current interview; run "interviewctl start" or pass an interview id`)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid interview id %q", raw)
	}
	return id, nil
}

func answerText(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("unable to read answer: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return strings.TrimSpace(strings.Join(args, " ")), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusCompleted:
		return okLabel.Sprint(s)
	case models.StatusAbandoned:
		return errorLabel.Sprint(s)
	default:
		return warnLabel.Sprint(s)
	}
}

func printTurn(w io.Writer, rsp *api.TurnResponse) {
	if rsp.Degraded {
		fmt.Fprintf(w, "%s %s\n", warnLabel.Sprint("Degraded:"), strings.Join(rsp.Diagnostics, ", "))
	}
	if f := rsp.Feedback; f != nil {
		fmt.Fprintf(w, "Rating: %s\n", ratingLabel(f.Rating))
		printList(w, "Strengths", f.Strengths)
		printList(w, "Improvements", f.Improvements)
	}
	if rsp.ClosingRemarks != "" {
		fmt.Fprintf(w, "\n%s\n", rsp.ClosingRemarks)
	}
	if r := rsp.Report; r != nil {
		printReport(w, r)
	}
	if !rsp.Terminal && rsp.Question != "" {
		fmt.Fprintf(w, "\nQuestion %d: %s\n", rsp.QuestionIndex+1, rsp.Question)
	}
}

func printReport(w io.Writer, r *api.Report) {
	title := cases.Title(language.English)
	fmt.Fprintf(w, "\nOverall score: %s\n", ratingLabel(int(r.OverallScore+0.5)))
	if len(r.SkillScores) > 0 {
		fmt.Fprintln(w, "Skills:")
		for _, skill := range sortedKeys(r.SkillScores) {
			fmt.Fprintf(w, "  %s: %d\n", title.String(skill), r.SkillScores[skill])
		}
	}
	printList(w, "Strengths", r.Strengths)
	printList(w, "Weaknesses", r.Weaknesses)
	printList(w, "Tips", r.ImprovementTips)
	if r.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", r.Summary)
	}
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func ratingLabel(rating int) string {
	s := fmt.Sprintf("%d/%d", rating, models.RatingMax)
	switch {
	case rating >= 7:
		return okLabel.Sprint(s)
	case rating >= models.RatingMid:
		return warnLabel.Sprint(s)
	default:
		return errorLabel.Sprint(s)
	}
}

func sortedKeys(m map[string]int) []string {
	return slices.Sorted(maps.Keys(m))
}
