package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const custodyABIJSON = `[
  {"type":"function","name":"deposit","stateMutability":"payable",
   "inputs":[{"name":"account","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"create","stateMutability":"nonpayable",
   "inputs":[
     {"name":"ch","type":"tuple","components":[
       {"name":"participants","type":"address[]"},
       {"name":"adjudicator","type":"address"},
       {"name":"challenge","type":"uint64"},
       {"name":"nonce","type":"uint64"}]},
     {"name":"initial","type":"tuple","components":[
       {"name":"intent","type":"uint8"},
       {"name":"version","type":"uint256"},
       {"name":"data","type":"bytes"},
       {"name":"allocations","type":"tuple[]","components":[
         {"name":"destination","type":"address"},
         {"name":"token","type":"address"},
         {"name":"amount","type":"uint256"}]},
       {"name":"sigs","type":"bytes[]"}]}],
   "outputs":[{"name":"channelId","type":"bytes32"}]},
  {"type":"function","name":"close","stateMutability":"nonpayable",
   "inputs":[
     {"name":"channelId","type":"bytes32"},
     {"name":"candidate","type":"tuple","components":[
       {"name":"intent","type":"uint8"},
       {"name":"version","type":"uint256"},
       {"name":"data","type":"bytes"},
       {"name":"allocations","type":"tuple[]","components":[
         {"name":"destination","type":"address"},
         {"name":"token","type":"address"},
         {"name":"amount","type":"uint256"}]},
       {"name":"sigs","type":"bytes[]"}]},
     {"name":"proofs","type":"tuple[]","components":[
       {"name":"intent","type":"uint8"},
       {"name":"version","type":"uint256"},
       {"name":"data","type":"bytes"},
       {"name":"allocations","type":"tuple[]","components":[
         {"name":"destination","type":"address"},
         {"name":"token","type":"address"},
         {"name":"amount","type":"uint256"}]},
       {"name":"sigs","type":"bytes[]"}]}],
   "outputs":[]},
  {"type":"function","name":"getAccountsBalances","stateMutability":"view",
   "inputs":[{"name":"users","type":"address[]"},{"name":"tokens","type":"address[]"}],
   "outputs":[{"name":"","type":"uint256[]"}]}
]`

const erc20ABIJSON = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable",
   "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]}
]`

var (
	custodyABI = mustParse(custodyABIJSON)
	erc20ABI   = mustParse(erc20ABIJSON)
)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("chain: parse abi: " + err.Error())
	}
	return parsed
}
