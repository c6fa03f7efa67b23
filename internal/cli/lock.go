package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tansive/stately/pkg/client"
)

var (
	// Lock command flags
	lockTTL       string
	lockOperation string
	lockWait      uint
	unlockLockID  string
	forceLockID   string
)

// lockCmd represents the lock command
var lockCmd = &cobra.Command{
	Use:   "lock <scope>",
	Short: "Acquire the advisory lock on a scope",
	Long: `Acquire the advisory lock on a scope. On success the lock token is
printed; pass it to write and unlock. With --wait the command retries with
backoff while another holder has the lock.

Example:
  stately lock networking-prod --ttl 30m --operation apply
  stately lock networking-prod --wait 10`,
	Args: cobra.ExactArgs(1),
	RunE: acquireLock,
}

func acquireLock(cmd *cobra.Command, args []string) error {
	c := newClient()
	scopeID := args[0]

	holder := client.DefaultHolder(lockOperation)

	var ttl time.Duration
	if lockTTL != "" {
		d, err := time.ParseDuration(lockTTL)
		if err != nil {
			return fmt.Errorf("invalid ttl: %w", err)
		}
		ttl = d
	}

	var rsp any
	var err error
	if lockWait > 0 {
		rsp, err = c.AcquireLockWithRetry(context.Background(), scopeID, holder, ttl, lockWait)
	} else {
		rsp, err = c.AcquireLock(scopeID, holder, ttl)
	}
	if err != nil {
		return err
	}
	printJSON(rsp)
	return nil
}

// unlockCmd represents the unlock command
var unlockCmd = &cobra.Command{
	Use:   "unlock <scope>",
	Short: "Release the advisory lock on a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if err := c.ReleaseLock(args[0], unlockLockID); err != nil {
			return err
		}
		fmt.Printf("unlocked %s\n", args[0])
		return nil
	},
}

// forceUnlockCmd represents the force-unlock command
var forceUnlockCmd = &cobra.Command{
	Use:   "force-unlock <scope>",
	Short: "Remove a scope's lock without its token",
	Long: `Remove a scope's lock without presenting its token. This bypasses the
mutual-exclusion guarantee and is meant for recovering from a holder that
crashed without releasing. Make sure no writer is still running.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if err := c.ForceUnlock(args[0], forceLockID); err != nil {
			return err
		}
		fmt.Printf("force-unlocked %s\n", args[0])
		return nil
	},
}

// lockInfoCmd represents the lock-info command
var lockInfoCmd = &cobra.Command{
	Use:   "lock-info <scope>",
	Short: "Show who holds a scope's lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		rsp, err := c.GetLock(args[0])
		if err != nil {
			if client.IsNotFound(err) {
				fmt.Printf("%s is not locked\n", args[0])
				return nil
			}
			return err
		}
		printJSON(rsp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(forceUnlockCmd)
	rootCmd.AddCommand(lockInfoCmd)

	lockCmd.Flags().StringVar(&lockTTL, "ttl", "", "Lock TTL as a duration, e.g. 30m (default: server policy)")
	lockCmd.Flags().StringVar(&lockOperation, "operation", "cli", "Operation recorded with the lock")
	lockCmd.Flags().UintVar(&lockWait, "wait", 0, "Retry up to N times with backoff while the scope is locked")

	unlockCmd.Flags().StringVarP(&unlockLockID, "lock-id", "l", "", "Token returned by lock")
	unlockCmd.MarkFlagRequired("lock-id")

	forceUnlockCmd.Flags().StringVarP(&forceLockID, "lock-id", "l", "", "Token the caller believed it held, recorded in the audit log")
}
