package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gones/internal/cartridge"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [rom]",
		Short: "Print a ROM's iNES header fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading ROM: %w", err)
			}
			cart, err := cartridge.Load(data)
			if err != nil {
				return fmt.Errorf("parsing ROM: %w", err)
			}
			fmt.Printf("mapper:   %d\n", cart.MapperID())
			fmt.Printf("mirror:   %v\n", cart.Mapper().MirrorMode())
			fmt.Printf("battery:  %t\n", cart.HasBattery())
			fmt.Printf("romCRC32: %08X\n", cart.ROMCRC32())
			return nil
		},
	}
}
