// stress_test seeds a running vigil instance with monitors so the
// scheduler, engine and notification paths can be watched under load.
// Point it at a mockagent for a mix of healthy and failing targets.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

func main() {
	addr := flag.String("addr", "http://localhost:9210", "vigil base URL")
	key := flag.String("key", "", "API key; minted on the fly when empty and the instance has none")
	target := flag.String("target", "http://localhost:8080", "mock target base URL")
	count := flag.Int("count", 50, "number of monitors to create")
	cleanup := flag.Bool("delete", false, "delete created monitors after a 30s soak")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	apiKey := *key
	if apiKey == "" {
		minted, err := mintKey(client, *addr)
		if err != nil {
			log.Fatalf("mint API key: %v", err)
		}
		apiKey = minted
		log.Printf("minted key %s...", apiKey[:12])
	}

	log.Printf("creating %d monitors against %s", *count, *target)
	var monitorIDs []string
	for i := 0; i < *count; i++ {
		// Alternate healthy and failing targets so transitions,
		// incidents and alerts all fire.
		path := "/ok"
		if i%2 == 0 {
			path = "/status/500"
		}
		name := fmt.Sprintf("stress-%d%s", i, path)

		id, err := createMonitor(client, *addr, apiKey, name, *target+path)
		if err != nil {
			log.Printf("create monitor %d: %v", i, err)
			continue
		}
		monitorIDs = append(monitorIDs, id)
		fmt.Printf(".")
		if (i+1)%10 == 0 {
			fmt.Println()
		}
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Println()
	log.Printf("created %d monitors", len(monitorIDs))

	if *cleanup {
		log.Println("soaking 30s before cleanup")
		time.Sleep(30 * time.Second)
		for _, id := range monitorIDs {
			if err := deleteMonitor(client, *addr, apiKey, id); err != nil {
				log.Printf("delete monitor %s: %v", id, err)
			}
		}
		log.Println("cleanup done")
	}
}

// mintKey creates the first API key. It only works on a fresh instance;
// once a key exists the endpoint itself requires one.
func mintKey(client *http.Client, addr string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"name": "stress-test"})
	resp, err := client.Post(addr+"/api/api-keys", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("status %d: %s (pass -key on a non-fresh instance)", resp.StatusCode, string(body))
	}
	var res struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	if res.Key == "" {
		return "", fmt.Errorf("no key in response")
	}
	return res.Key, nil
}

func createMonitor(client *http.Client, addr, key, name, url string) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"name":     name,
		"url":      url,
		"interval": 60,
	})
	req, _ := http.NewRequest(http.MethodPost, addr+"/api/monitors", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	var res struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	if res.ID == "" {
		return "", fmt.Errorf("no id in response")
	}
	return res.ID, nil
}

func deleteMonitor(client *http.Client, addr, key, id string) error {
	req, _ := http.NewRequest(http.MethodDelete, addr+"/api/monitors/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
