package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dadadevs/certserver/internal/anchor"
	"github.com/dadadevs/certserver/internal/auth"
	"github.com/dadadevs/certserver/internal/config"
	"github.com/dadadevs/certserver/internal/engine"
	"github.com/dadadevs/certserver/internal/logger"
	"github.com/dadadevs/certserver/internal/pdf"
	"github.com/dadadevs/certserver/internal/signer"
	"github.com/dadadevs/certserver/internal/store"
)

var (
	configPath string
	cfg        *config.Config
	eng        *engine.Engine
	sig        *signer.Signer
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Certificate server administration tool",
	Long:  "Administrative tool for issuing, revoking and reviewing certificates",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// totp and passwd only produce config values, no engine needed
		if cmd.Name() == "totp" || cmd.Name() == "passwd" {
			return nil
		}
		return setup()
	},
}

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a certificate directly",
	RunE:  issueCert,
}

var bulkCmd = &cobra.Command{
	Use:   "bulk <csv-file>",
	Short: "Issue certificates from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  bulkIssue,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <cert-id>",
	Short: "Revoke a certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  revokeCert,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <cert-id>",
	Short: "Verify a certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  verifyCert,
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Manage certificate requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List certificate requests",
	RunE:  listRequests,
}

var requestsApproveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Approve a pending request",
	Args:  cobra.ExactArgs(1),
	RunE:  approveRequest,
}

var requestsRejectCmd = &cobra.Command{
	Use:   "reject <request-id>",
	Short: "Reject a pending request",
	Args:  cobra.ExactArgs(1),
	RunE:  rejectRequest,
}

var exportKeyCmd = &cobra.Command{
	Use:   "export-key",
	Short: "Print the signing public key",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print(sig.PublicKeyPEM())
		fmt.Printf("Fingerprint: %s\n", sig.Fingerprint())
		return nil
	},
}

var totpCmd = &cobra.Command{
	Use:   "totp",
	Short: "Generate an admin TOTP secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := auth.GenerateTOTPSecret()
		if err != nil {
			return err
		}
		fmt.Printf("TOTP secret: %s\n", secret)
		fmt.Printf("Provisioning URL: %s\n", auth.GenerateQRCodeURL(secret, "admin", ""))
		fmt.Println("Set admin.totp_secret in the config to enable the second factor.")
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <password>",
	Short: "Hash an admin password for the config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		fmt.Println("Set admin.password_hash in the config to enable password login.")
		return nil
	},
}

var (
	name     string
	cohort   string
	email    string
	reason   string
	reviewer string
	pdfOut   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/certserver/config.yaml", "Config file path")

	issueCmd.Flags().StringVarP(&name, "name", "n", "", "Recipient name (required)")
	issueCmd.Flags().StringVar(&cohort, "cohort", "", "Cohort")
	issueCmd.Flags().StringVar(&email, "email", "", "Recipient email")
	issueCmd.Flags().StringVarP(&pdfOut, "out", "o", "", "Write the PDF to this path")
	issueCmd.MarkFlagRequired("name")

	revokeCmd.Flags().StringVar(&reason, "reason", "No reason provided", "Revocation reason")

	requestsApproveCmd.Flags().StringVar(&reviewer, "approver", "admin", "Approver name")
	requestsApproveCmd.Flags().StringVarP(&pdfOut, "out", "o", "", "Write the PDF to this path")
	requestsRejectCmd.Flags().StringVar(&reviewer, "reviewer", "admin", "Reviewer name")
	requestsRejectCmd.Flags().StringVar(&reason, "reason", "No reason provided", "Rejection reason")

	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsApproveCmd)
	requestsCmd.AddCommand(requestsRejectCmd)

	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(exportKeyCmd)
	rootCmd.AddCommand(totpCmd)
	rootCmd.AddCommand(passwdCmd)
}

// setup wires the engine against the configured data directory, the same
// way the server does.
func setup() error {
	var err error
	cfg, err = config.LoadWithEnv(configPath)
	if err != nil {
		return err
	}

	log := logger.Setup("warn", "text")

	certs, err := store.NewCertificateStore(cfg.Storage.DataDir, cfg.Storage.Strict, log)
	if err != nil {
		return err
	}
	requests, err := store.NewRequestStore(cfg.Storage.DataDir, cfg.Storage.Strict, log)
	if err != nil {
		return err
	}
	audit, err := store.NewAuditStore(cfg.Storage.DataDir, cfg.Storage.Strict, log)
	if err != nil {
		return err
	}

	sig, err = signer.LoadOrGenerate(cfg.Signing.PrivateKeyPath, cfg.Signing.PublicKeyPath)
	if err != nil {
		return err
	}

	timestamper, err := anchor.NewCalendarClient(
		cfg.Storage.ProofsDir(),
		cfg.Anchor.Timestamp.Calendars,
		cfg.Anchor.Timestamp.Enabled,
		cfg.TimestampTimeout(),
		log,
	)
	if err != nil {
		return err
	}
	pinner, err := anchor.NewIPFSPinner(
		cfg.Storage.PublicDir(),
		cfg.Anchor.Pin.APIURL,
		cfg.Anchor.Pin.APIKey,
		cfg.Anchor.Pin.APISecret,
		cfg.Anchor.Pin.GatewayURL,
		cfg.PinTimeout(),
		log,
	)
	if err != nil {
		return err
	}

	renderer := pdf.NewGenerator(cfg.PDF.OrgName, cfg.PDF.Signatory)
	eng = engine.New(certs, requests, audit, sig, renderer, timestamper, pinner, cfg.Server.BaseURL, log)
	return nil
}

func issueCert(cmd *cobra.Command, args []string) error {
	cert, pdfBytes, err := eng.Issue(context.Background(), name, cohort, email, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Issued certificate %s for %s (%s)\n", cert.ID, cert.Name, cert.Cohort)
	fmt.Printf("Verify URL: %s\n", cert.VerifyURL)

	if pdfOut != "" {
		if err := os.WriteFile(pdfOut, pdfBytes, 0o644); err != nil {
			return fmt.Errorf("failed to write PDF: %w", err)
		}
		fmt.Printf("PDF written to %s\n", pdfOut)
	}
	return nil
}

func bulkIssue(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read CSV file: %w", err)
	}

	issued, err := eng.BulkIssue(context.Background(), data)
	if err != nil {
		return err
	}

	for _, cert := range issued {
		fmt.Printf("%s  %s  %s\n", cert.ID, cert.Name, cert.Cohort)
	}
	fmt.Printf("Issued %d certificates\n", len(issued))
	return nil
}

func revokeCert(cmd *cobra.Command, args []string) error {
	cert, err := eng.Revoke(args[0], reason)
	if err != nil {
		return err
	}
	if cert == nil {
		return fmt.Errorf("certificate not found: %s", args[0])
	}
	fmt.Printf("Revoked certificate %s (%s)\n", cert.ID, cert.RevocationReason)
	return nil
}

func verifyCert(cmd *cobra.Command, args []string) error {
	result, err := eng.Verify(args[0])
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("certificate not found: %s", args[0])
	}

	fmt.Printf("Certificate: %s\n", result.ID)
	fmt.Printf("Name:        %s\n", result.Name)
	fmt.Printf("Cohort:      %s\n", result.Cohort)
	fmt.Printf("Issued at:   %s\n", result.IssuedAt)
	fmt.Printf("Signature:   valid=%v\n", result.SignatureValid)
	fmt.Printf("Timestamp:   %s\n", result.Proof.Status)
	fmt.Printf("Revoked:     %v\n", result.Revoked)
	if result.Revoked {
		fmt.Printf("Reason:      %s\n", result.RevocationReason)
	}
	return nil
}

func listRequests(cmd *cobra.Command, args []string) error {
	reqs, err := eng.ListRequests()
	if err != nil {
		return err
	}
	for _, req := range reqs {
		fmt.Printf("%s  %-9s  %s (%s) requested by %s\n",
			req.RequestID, req.Status, req.Name, req.Cohort, req.RequestedBy)
	}
	fmt.Printf("%d requests\n", len(reqs))
	return nil
}

func approveRequest(cmd *cobra.Command, args []string) error {
	cert, pdfBytes, err := eng.ApproveRequest(context.Background(), args[0], reviewer)
	if err != nil {
		return err
	}
	if cert == nil {
		return fmt.Errorf("request not found or already processed: %s", args[0])
	}

	fmt.Printf("Approved request %s, issued certificate %s for %s\n", args[0], cert.ID, cert.Name)

	if pdfOut != "" {
		if err := os.WriteFile(pdfOut, pdfBytes, 0o644); err != nil {
			return fmt.Errorf("failed to write PDF: %w", err)
		}
		fmt.Printf("PDF written to %s\n", pdfOut)
	}
	return nil
}

func rejectRequest(cmd *cobra.Command, args []string) error {
	req, err := eng.RejectRequest(args[0], reviewer, reason)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("request not found or already processed: %s", args[0])
	}
	fmt.Printf("Rejected request %s (%s)\n", req.RequestID, req.RejectionReason)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
