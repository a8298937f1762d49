package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/urfave/cli/v2"
)

var decode = &cli.Command{
	Name:  "decode",
	Usage: "decodes nip19 and nip21 entities",
	Description: `reads entities from the arguments or, when there are none, from stdin. example usage:
		notecache decode npub1uescmd5krhrmj9rcura833xpke5eqzvcz5nxjw74ufeewf2sscxq4g7chm
		notecache decode nostr:note1...`,
	ArgsUsage: "<npub | nsec | note | nprofile | nevent | naddr>...",
	Action: func(c *cli.Context) error {
		inputs := c.Args().Slice()
		if len(inputs) == 0 {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					inputs = append(inputs, line)
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		failed := 0
		for _, input := range inputs {
			result, err := decodeEntity(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "couldn't decode %q: %s\n", input, err)
				failed++
				continue
			}
			if err := enc.Encode(result); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d entities failed to decode", failed, len(inputs))
		}
		return nil
	},
}

type decodeResult struct {
	Type       string   `json:"type"`
	PubKey     string   `json:"pubkey,omitempty"`
	PrivateKey string   `json:"private_key,omitempty"`
	ID         string   `json:"id,omitempty"`
	Kind       int      `json:"kind,omitempty"`
	Identifier string   `json:"identifier,omitempty"`
	Relays     []string `json:"relays,omitempty"`
}

func decodeEntity(input string) (*decodeResult, error) {
	prefix, value, err := nip19.Decode(strings.TrimPrefix(strings.TrimSpace(input), "nostr:"))
	if err != nil {
		return nil, err
	}

	r := &decodeResult{Type: prefix}
	switch v := value.(type) {
	case string:
		switch prefix {
		case "npub":
			r.PubKey = v
		case "nsec":
			r.PrivateKey = v
			if r.PubKey, err = nostr.GetPublicKey(v); err != nil {
				return nil, err
			}
		case "note":
			r.ID = v
		}
	case nostr.ProfilePointer:
		r.PubKey, r.Relays = v.PublicKey, v.Relays
	case nostr.EventPointer:
		r.ID, r.PubKey, r.Kind, r.Relays = v.ID, v.Author, v.Kind, v.Relays
	case nostr.EntityPointer:
		r.PubKey, r.Kind, r.Identifier, r.Relays = v.PublicKey, v.Kind, v.Identifier, v.Relays
	default:
		return nil, fmt.Errorf("unsupported entity type %s", prefix)
	}
	return r, nil
}
