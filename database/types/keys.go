// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import "net/url"

const (
	// ContractInfoKey holds the contract name and version
	ContractInfoKey = "contract_info"
	// ContractConfigKey holds the settlement denom and NFT class
	ContractConfigKey = "contract_config"
	// PledgeKeyPrefix prefixes each pledge record
	PledgeKeyPrefix = "pledges/"
	// DevnetKeyPrefix prefixes the local chain services state
	DevnetKeyPrefix = "devnet/"
	// CommitTimestampKey is shared by the blob and metadata stores
	CommitTimestampKey = "metadata_commit_timestamp"
)

func PledgeKey(id string) []byte {
	return []byte(PledgeKeyPrefix + id)
}

// DevnetKey joins path segments under DevnetKeyPrefix. Each segment is
// path-escaped so a "/" inside an ID can never move it into another
// segment, and a trailing "" segment yields an exact prefix for scans
func DevnetKey(parts ...string) []byte {
	key := DevnetKeyPrefix
	for i, part := range parts {
		if i > 0 {
			key += "/"
		}
		key += url.PathEscape(part)
	}
	return []byte(key)
}
