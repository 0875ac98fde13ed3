package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"wayfind/crypto"
)

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via RPC_URL or --rpc flag
var rpcAuthToken = os.Getenv("WAYFIND_RPC_TOKEN")

func main() {
	args := os.Args[1:]
	var err error
	rpcEndpoint = defaultRPCEndpoint()
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		generateKey()
	case "config":
		showConfig()
	case "credits":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		showCredits(args[1])
	case "creator":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		showCreator(args[1])
	case "burn":
		if len(args) < 3 {
			fmt.Println("Error: Please provide an amount and a key file.")
			printUsage()
			return
		}
		burn(args[1], args[2])
	case "register":
		if len(args) < 3 {
			fmt.Println("Error: Please provide a payout address and a key file.")
			printUsage()
			return
		}
		register(args[1], args[2])
	case "claim":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a key file.")
			printUsage()
			return
		}
		claim(args[1])
	case "record-views":
		if len(args) < 4 {
			fmt.Println("Error: Please provide a creator address, a view count and a key file.")
			printUsage()
			return
		}
		recordViews(args[1], args[2], args[3])
	case "update-reputation":
		if len(args) < 5 {
			fmt.Println("Error: Please provide a creator address, a score, a tier and a key file.")
			printUsage()
			return
		}
		updateReputation(args[1], args[2], args[3], args[4])
	case "distribute":
		if len(args) < 4 {
			fmt.Println("Error: Please provide a creator address, a base reward and a key file.")
			printUsage()
			return
		}
		distribute(args[1], args[2], args[3])
	case "events":
		from := uint64(0)
		if len(args) > 1 {
			parsed, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				fmt.Println("Error: Invalid cursor.")
				return
			}
			from = parsed
		}
		showEvents(from)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage: wayfind-cli [--rpc <url>] <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  generate-key                                       - Generate a new wallet key (wallet.key)")
	fmt.Println("  config                                             - Show the protocol configuration")
	fmt.Println("  credits <address>                                  - Show a credit account")
	fmt.Println("  creator <address>                                  - Show a creator profile")
	fmt.Println("  burn <amount> <keyfile>                            - Burn tokens for credits")
	fmt.Println("  register <payout> <keyfile>                        - Register as a creator")
	fmt.Println("  claim <keyfile>                                    - Claim pending rewards")
	fmt.Println("  record-views <creator> <views> <keyfile>           - Record views (authority only)")
	fmt.Println("  update-reputation <creator> <score> <tier> <keyfile> - Update reputation (authority only)")
	fmt.Println("  distribute <creator> <baseReward> <keyfile>        - Distribute a reward (authority only)")
	fmt.Println("  events [from]                                      - Show the event log from a cursor")
}

func defaultRPCEndpoint() string {
	if url := strings.TrimSpace(os.Getenv("RPC_URL")); url != "" {
		return url
	}
	return "http://localhost:8661"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--rpc requires a URL argument")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func generateKey() {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		panic(err)
	}

	fileName := "wallet.key"
	if err := os.WriteFile(fileName, key.Bytes(), 0600); err != nil {
		panic(fmt.Sprintf("Failed to save key to %s: %v", fileName, err))
	}

	fmt.Printf("Generated new key and saved to %s\n", fileName)
	fmt.Printf("Your public address is: %s\n", key.PubKey().Address().String())
	fmt.Println("Store this file securely. Commands will refuse to run without a local key.")
}

func showConfig() {
	result, err := callRPC("remint_getConfig", nil, false)
	if err != nil {
		fmt.Printf("Error fetching config: %v\n", err)
		return
	}
	printJSON(result)
}

func showCredits(addr string) {
	result, err := callRPC("remint_getCredits", map[string]string{"address": addr}, false)
	if err != nil {
		fmt.Printf("Error fetching credits: %v\n", err)
		return
	}
	printJSON(result)
}

func showCreator(addr string) {
	result, err := callRPC("remint_getCreator", map[string]string{"address": addr}, false)
	if err != nil {
		fmt.Printf("Error fetching creator: %v\n", err)
		return
	}
	printJSON(result)
}

func burn(amount, keyFile string) {
	caller, err := callerAddress(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	result, err := callRPC("remint_burnForCredits", map[string]string{
		"caller": caller,
		"amount": amount,
	}, false)
	if err != nil {
		fmt.Printf("Error burning tokens: %v\n", err)
		return
	}
	printJSON(result)
}

func register(payout, keyFile string) {
	caller, err := callerAddress(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	result, err := callRPC("remint_registerCreator", map[string]string{
		"caller": caller,
		"payout": payout,
	}, false)
	if err != nil {
		fmt.Printf("Error registering creator: %v\n", err)
		return
	}
	printJSON(result)
}

func claim(keyFile string) {
	caller, err := callerAddress(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	result, err := callRPC("remint_claimRewards", map[string]string{"caller": caller}, false)
	if err != nil {
		fmt.Printf("Error claiming rewards: %v\n", err)
		return
	}
	printJSON(result)
}

func recordViews(creator, views, keyFile string) {
	caller, err := callerAddress(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	result, err := callRPC("remint_recordViews", map[string]string{
		"caller":  caller,
		"creator": creator,
		"views":   views,
	}, true)
	if err != nil {
		fmt.Printf("Error recording views: %v\n", err)
		return
	}
	printJSON(result)
}

func updateReputation(creator, score, tier, keyFile string) {
	caller, err := callerAddress(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	parsedScore, err := strconv.ParseUint(score, 10, 8)
	if err != nil {
		fmt.Println("Error: Invalid score.")
		return
	}
	result, err := callRPC("remint_updateReputation", map[string]interface{}{
		"caller":  caller,
		"creator": creator,
		"score":   parsedScore,
		"tier":    tier,
	}, true)
	if err != nil {
		fmt.Printf("Error updating reputation: %v\n", err)
		return
	}
	printJSON(result)
}

func distribute(creator, baseReward, keyFile string) {
	caller, err := callerAddress(keyFile)
	if err != nil {
		fmt.Printf("Error loading private key: %v\n", err)
		return
	}
	result, err := callRPC("remint_distributeReward", map[string]string{
		"caller":     caller,
		"creator":    creator,
		"baseReward": baseReward,
	}, true)
	if err != nil {
		fmt.Printf("Error distributing reward: %v\n", err)
		return
	}
	printJSON(result)
}

func showEvents(from uint64) {
	result, err := callRPC("remint_getEvents", map[string]uint64{"from": from}, false)
	if err != nil {
		fmt.Printf("Error fetching events: %v\n", err)
		return
	}
	printJSON(result)
}

// --- RPC HELPER FUNCTIONS ---

func callRPC(method string, param interface{}, requireAuth bool) (json.RawMessage, error) {
	payload := map[string]interface{}{"id": 1, "jsonrpc": "2.0", "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	} else {
		payload["params"] = []interface{}{}
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requireAuth {
		if rpcAuthToken == "" {
			return nil, fmt.Errorf("privileged RPC call requires WAYFIND_RPC_TOKEN to be set")
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(rpcAuthToken))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node")
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("error from node: %s", rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func callerAddress(keyFile string) (string, error) {
	key, err := loadPrivateKey(keyFile)
	if err != nil {
		return "", err
	}
	return key.PubKey().Address().String(), nil
}

func loadPrivateKey(path string) (*crypto.PrivateKey, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("private key file %s not found. run ./wayfind-cli generate-key first", path)
		}
		return nil, fmt.Errorf("failed to read private key file %s: %w", path, err)
	}
	if len(keyBytes) == 0 {
		return nil, fmt.Errorf("private key file %s is empty. run ./wayfind-cli generate-key first", path)
	}
	privKey, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key in %s: %w", path, err)
	}
	return privKey, nil
}

func printJSON(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}
